package builtin

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/posecap/cache"
	"go.viam.com/posecap/filter"
	"go.viam.com/posecap/frame"
	"go.viam.com/posecap/logging"
	"go.viam.com/posecap/utils"
)

// ModelAmplifier scales the scalar value of selected channels.
const ModelAmplifier = "amplifier"

func init() {
	filter.Register(ModelAmplifier, filter.Registration[*AmplifierConfig]{
		Constructor: func(conf filter.Config, logger logging.Logger) (filter.Filter, error) {
			cfg, err := filter.NativeConfig[*AmplifierConfig](conf)
			if err != nil {
				return nil, err
			}
			return NewAmplifier(conf, *cfg), nil
		},
	})
}

// AmplifierConfig maps channel names to the gain applied to their value.
type AmplifierConfig struct {
	Multipliers map[string]float64 `json:"multipliers"`
}

// Validate ensures all parts of the config are valid.
func (cfg *AmplifierConfig) Validate(path string) error {
	for name, gain := range cfg.Multipliers {
		if name == "" {
			return utils.NewConfigValidationError(path, errors.New("multipliers cannot contain an empty channel name"))
		}
		if math.IsNaN(gain) || math.IsInf(gain, 0) {
			return utils.NewConfigValidationError(path, errors.Errorf("multiplier for %q must be finite", name))
		}
	}
	return nil
}

// Amplifier multiplies the value of each configured channel by its gain. Other channels pass
// through unchanged.
type Amplifier struct {
	filter.Base
	multipliers map[frame.ChannelID]float64
}

// NewAmplifier returns an amplifier.
func NewAmplifier(conf filter.Config, cfg AmplifierConfig) *Amplifier {
	multipliers := make(map[frame.ChannelID]float64, len(cfg.Multipliers))
	for name, gain := range cfg.Multipliers {
		multipliers[frame.ChannelID(name)] = gain
	}
	return &Amplifier{Base: filter.NewBase(conf), multipliers: multipliers}
}

// Apply amplifies the configured channels of f.
func (a *Amplifier) Apply(f *frame.Frame) *frame.Frame {
	out := f.Clone()
	for id, gain := range a.multipliers {
		ch, ok := out.Channels[id]
		if !ok {
			continue
		}
		ch.Value *= gain
		out.Channels[id] = ch
	}
	return out
}

// ApplyCache amplifies the cache's current frame.
func (a *Amplifier) ApplyCache(c *cache.CaptureCache) (*frame.Frame, error) {
	return filter.ApplyCurrent(c, a.Apply)
}
