package filter

import (
	"reflect"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/posecap/utils"
)

// Config describes one filter in a chain.
type Config struct {
	Name       string             `json:"name"`
	Model      string             `json:"model"`
	Stage      Stage              `json:"stage"`
	Enabled    *bool              `json:"enabled,omitempty"`
	Ordinal    int                `json:"ordinal"`
	Attributes utils.AttributeMap `json:"attributes,omitempty"`

	// ConvertedAttributes holds the model specific config once Attributes has been converted.
	ConvertedAttributes ConfigValidator `json:"-"`
}

// A ConfigValidator validates a model specific filter config. path names the config in errors.
type ConfigValidator interface {
	Validate(path string) error
}

// A Defaulter fills in default parameters before attributes are decoded on top of them.
type Defaulter interface {
	SetDefaults()
}

// IsEnabled returns whether the filter should run. Filters are enabled unless disabled explicitly.
func (conf *Config) IsEnabled() bool {
	return conf.Enabled == nil || *conf.Enabled
}

// Validate checks the generic fields and, if present, the converted attributes.
func (conf *Config) Validate(path string) error {
	if conf.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if !utils.ValidNameRegex.MatchString(conf.Name) {
		return utils.NewConfigValidationError(path, utils.ErrInvalidName(conf.Name))
	}
	if conf.Model == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "model")
	}
	if conf.Ordinal < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("ordinal must be non-negative, got %d", conf.Ordinal))
	}
	if conf.ConvertedAttributes != nil {
		return conf.ConvertedAttributes.Validate(path + ".attributes")
	}
	return nil
}

// NativeConfig returns the model specific config of conf as T. It fails when the attributes
// were never converted or were converted by another model's registration.
func NativeConfig[T any](conf Config) (T, error) {
	native, ok := conf.ConvertedAttributes.(T)
	if !ok {
		return native, errors.Wrapf(utils.NewUnexpectedTypeError[T](conf.ConvertedAttributes),
			"filter %q has no native %s config", conf.Name, conf.Model)
	}
	return native, nil
}

// TransformAttributeMap decodes attributes into a freshly allocated T using json field names.
// Defaults are applied first when T implements Defaulter. Unknown attributes are an error so
// misspelled parameters do not silently fall back to defaults.
func TransformAttributeMap[T any](attributes utils.AttributeMap) (T, error) {
	var out T

	var forResult interface{}

	toT := reflect.TypeOf(out)
	if toT == nil {
		return out, errors.New("cannot transform attributes into an interface type")
	}
	if toT.Kind() == reflect.Ptr {
		// needs to be allocated then
		var ok bool
		out, ok = reflect.New(toT.Elem()).Interface().(T)
		if !ok {
			return out, errors.Errorf("failed to allocate default config type %T", out)
		}
		forResult = out
	} else {
		forResult = &out
	}
	if defaulter, ok := forResult.(Defaulter); ok {
		defaulter.SetDefaults()
	}

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           forResult,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(map[string]interface{}(attributes)); err != nil {
		return out, err
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return out, errors.Errorf("unknown attributes: %s", strings.Join(md.Unused, ", "))
	}
	return out, nil
}
