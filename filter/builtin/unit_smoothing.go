package builtin

import (
	"math"

	"go.uber.org/multierr"

	"go.viam.com/posecap/cache"
	"go.viam.com/posecap/filter"
	"go.viam.com/posecap/frame"
	"go.viam.com/posecap/logging"
	"go.viam.com/posecap/utils"
)

// ModelUnitSmoothing smooths scalar channel values such as face animation units.
const ModelUnitSmoothing = "unit_smoothing"

func init() {
	filter.Register(ModelUnitSmoothing, filter.Registration[*UnitSmoothingConfig]{
		Constructor: func(conf filter.Config, logger logging.Logger) (filter.Filter, error) {
			cfg, err := filter.NativeConfig[*UnitSmoothingConfig](conf)
			if err != nil {
				return nil, err
			}
			return NewUnitSmoothing(conf, *cfg), nil
		},
	})
}

// UnitSmoothingConfig holds the parameters of the scalar smoother.
type UnitSmoothingConfig struct {
	Smoothing   float64 `json:"smoothing"`
	JitterValue float64 `json:"jitter_value"`
}

// SetDefaults applies the parameters used when an attribute is omitted.
func (cfg *UnitSmoothingConfig) SetDefaults() {
	cfg.Smoothing = 0.5
	cfg.JitterValue = 0.1
}

// Validate ensures all parts of the config are valid.
func (cfg *UnitSmoothingConfig) Validate(path string) error {
	return multierr.Combine(
		validateUnit(path, "smoothing", cfg.Smoothing),
		validatePositive(path, "jitter_value", cfg.JitterValue),
	)
}

// UnitSmoothing is the scalar counterpart of OrientationSmoothing.
type UnitSmoothing struct {
	filter.Base
	cfg UnitSmoothingConfig
}

// NewUnitSmoothing returns a scalar value smoother.
func NewUnitSmoothing(conf filter.Config, cfg UnitSmoothingConfig) *UnitSmoothing {
	return &UnitSmoothing{Base: filter.NewBase(conf), cfg: cfg}
}

// Apply passes f through since there is no previous output to smooth toward.
func (us *UnitSmoothing) Apply(f *frame.Frame) *frame.Frame {
	return f.Clone()
}

// ApplyCache smooths the current frame against the last frame this filter produced.
func (us *UnitSmoothing) ApplyCache(c *cache.CaptureCache) (*frame.Frame, error) {
	cur, err := c.Current()
	if err != nil {
		return nil, err
	}
	prev, ok := c.LastAfter(us.Name())
	if !ok {
		return us.Apply(cur), nil
	}
	out := cur.Clone()
	for id, ch := range cur.Channels {
		before, ok := prev.Channels[id]
		if !ok {
			continue
		}
		ch.Value = us.smoothValue(ch.Value, before.Value)
		out.Channels[id] = ch
	}
	return out, nil
}

func (us *UnitSmoothing) smoothValue(cur, prev float64) float64 {
	jitter := utils.AtLeast(us.cfg.JitterValue, minRadius)
	blended := cur
	if diff := math.Abs(prev - cur); diff < jitter {
		w := diff / jitter
		blended = cur*w + prev*(1-w)
	}
	return blended*(1-us.cfg.Smoothing) + prev*us.cfg.Smoothing
}
