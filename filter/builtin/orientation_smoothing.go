package builtin

import (
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/posecap/cache"
	"go.viam.com/posecap/filter"
	"go.viam.com/posecap/frame"
	"go.viam.com/posecap/logging"
	"go.viam.com/posecap/spatialmath"
	"go.viam.com/posecap/utils"
)

// ModelOrientationExponential smooths channel and root orientations.
const ModelOrientationExponential = "orientation_exponential"

func init() {
	filter.Register(ModelOrientationExponential, filter.Registration[*OrientationSmoothingConfig]{
		Constructor: func(conf filter.Config, logger logging.Logger) (filter.Filter, error) {
			cfg, err := filter.NativeConfig[*OrientationSmoothingConfig](conf)
			if err != nil {
				return nil, err
			}
			return NewOrientationSmoothing(conf, *cfg), nil
		},
	})
}

// OrientationSmoothingConfig holds the parameters of the orientation smoother. JitterRadius is
// in radians.
type OrientationSmoothingConfig struct {
	Smoothing    float64 `json:"smoothing"`
	JitterRadius float64 `json:"jitter_radius"`
}

// SetDefaults applies the parameters used when an attribute is omitted.
func (cfg *OrientationSmoothingConfig) SetDefaults() {
	cfg.Smoothing = 0.5
	cfg.JitterRadius = 0.1
}

// Validate ensures all parts of the config are valid.
func (cfg *OrientationSmoothingConfig) Validate(path string) error {
	return multierr.Combine(
		validateUnit(path, "smoothing", cfg.Smoothing),
		validatePositive(path, "jitter_radius", cfg.JitterRadius),
	)
}

// OrientationSmoothing exponentially smooths every orientation toward the filter's previous
// output. Only the most recent earlier output is consulted.
type OrientationSmoothing struct {
	filter.Base
	cfg OrientationSmoothingConfig
}

// NewOrientationSmoothing returns an orientation smoother.
func NewOrientationSmoothing(conf filter.Config, cfg OrientationSmoothingConfig) *OrientationSmoothing {
	return &OrientationSmoothing{Base: filter.NewBase(conf), cfg: cfg}
}

// Apply passes f through since there is no previous output to smooth toward.
func (o *OrientationSmoothing) Apply(f *frame.Frame) *frame.Frame {
	return f.Clone()
}

// ApplyCache smooths the current frame against the last frame this filter produced.
func (o *OrientationSmoothing) ApplyCache(c *cache.CaptureCache) (*frame.Frame, error) {
	cur, err := c.Current()
	if err != nil {
		return nil, err
	}
	prev, ok := c.LastAfter(o.Name())
	if !ok {
		return o.Apply(cur), nil
	}
	return o.smooth(cur, prev), nil
}

func (o *OrientationSmoothing) smooth(cur, prev *frame.Frame) *frame.Frame {
	out := cur.Clone()
	out.Orientation = o.smoothRotation(cur.Orientation, prev.Orientation)
	for id, ch := range cur.Channels {
		before, ok := prev.Channels[id]
		if !ok {
			continue
		}
		ch.Orientation = o.smoothRotation(ch.Orientation, before.Orientation)
		out.Channels[id] = ch
	}
	return out
}

func (o *OrientationSmoothing) smoothRotation(q, prev quat.Number) quat.Number {
	jitter := utils.AtLeast(o.cfg.JitterRadius, minRadius)
	filtered := q
	if delta := spatialmath.AngleBetween(prev, q); delta < jitter {
		filtered = spatialmath.Slerp(prev, q, delta/jitter)
	}
	return spatialmath.Slerp(filtered, prev, o.cfg.Smoothing)
}
