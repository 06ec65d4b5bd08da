package filter

import (
	"sort"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"go.viam.com/posecap/logging"
	"go.viam.com/posecap/utils"
)

// A Constructor builds a filter from its config. The config's ConvertedAttributes has already
// been populated and validated.
type Constructor func(conf Config, logger logging.Logger) (Filter, error)

// Registration describes how to build one filter model.
type Registration[ConfigT ConfigValidator] struct {
	Constructor Constructor

	// AttributeMapConverter converts raw attributes to the model's native config. When nil,
	// TransformAttributeMap[ConfigT] is used.
	AttributeMapConverter func(attributes utils.AttributeMap) (ConfigT, error)
}

type genericRegistration struct {
	constructor Constructor
	converter   func(attributes utils.AttributeMap) (ConfigValidator, error)
	schema      *jsonschema.Schema
}

var (
	registryMu sync.RWMutex
	registry   = map[string]genericRegistration{}
)

// Register associates a model name with the way to build it. Registering the same model twice
// panics; registration happens from init functions.
func Register[ConfigT ConfigValidator](model string, reg Registration[ConfigT]) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, old := registry[model]; old {
		panic(errors.Errorf("trying to register two filters with same model %q", model))
	}
	if reg.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for filter model %q", model))
	}
	convert := reg.AttributeMapConverter
	if convert == nil {
		convert = TransformAttributeMap[ConfigT]
	}
	var zero ConfigT
	registry[model] = genericRegistration{
		constructor: reg.Constructor,
		schema:      jsonschema.Reflect(zero),
		converter: func(attributes utils.AttributeMap) (ConfigValidator, error) {
			converted, err := convert(attributes)
			if err != nil {
				return nil, err
			}
			return converted, nil
		},
	}
}

// Deregister removes a previously registered model.
func Deregister(model string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, model)
}

// IsRegistered returns whether a model has been registered.
func IsRegistered(model string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[model]
	return ok
}

// Lookup returns the constructor registered for model.
func Lookup(model string) (Constructor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[model]
	if !ok {
		return nil, false
	}
	return reg.constructor, true
}

// Schema returns the JSON schema of a model's attributes.
func Schema(model string) (*jsonschema.Schema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[model]
	if !ok {
		return nil, false
	}
	return reg.schema, true
}

// RegisteredModels returns the registered model names in sorted order.
func RegisteredModels() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	models := make([]string, 0, len(registry))
	for model := range registry {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// New builds the filter described by conf using its registered model.
func New(conf Config, logger logging.Logger) (Filter, error) {
	registryMu.RLock()
	reg, ok := registry[conf.Model]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown filter model %q, registered models are %v", conf.Model, RegisteredModels())
	}

	converted, err := reg.converter(conf.Attributes)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse attributes of filter %q", conf.Name)
	}
	conf.ConvertedAttributes = converted
	if err := conf.Validate("filters." + conf.Name); err != nil {
		return nil, err
	}
	f, err := reg.constructor(conf, logger.Sublogger(conf.Name))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot build filter %q", conf.Name)
	}
	return f, nil
}
