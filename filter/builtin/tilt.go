package builtin

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/posecap/cache"
	"go.viam.com/posecap/filter"
	"go.viam.com/posecap/frame"
	"go.viam.com/posecap/logging"
	"go.viam.com/posecap/spatialmath"
	"go.viam.com/posecap/utils"
)

// ModelTiltCorrection compensates for a sensor pitched up or down.
const ModelTiltCorrection = "tilt_correction"

func init() {
	filter.Register(ModelTiltCorrection, filter.Registration[*TiltCorrectionConfig]{
		Constructor: func(conf filter.Config, logger logging.Logger) (filter.Filter, error) {
			cfg, err := filter.NativeConfig[*TiltCorrectionConfig](conf)
			if err != nil {
				return nil, err
			}
			return NewTiltCorrection(conf, *cfg), nil
		},
	})
}

// TiltCorrectionConfig holds the sensor pitch and the joint rotated about.
type TiltCorrectionConfig struct {
	TiltDegrees float64 `json:"tilt_degrees"`
	Root        string  `json:"root"`
}

// SetDefaults applies the parameters used when an attribute is omitted.
func (cfg *TiltCorrectionConfig) SetDefaults() {
	cfg.Root = string(frame.SpineBase)
}

// Validate ensures all parts of the config are valid.
func (cfg *TiltCorrectionConfig) Validate(path string) error {
	if math.IsNaN(cfg.TiltDegrees) || math.Abs(cfg.TiltDegrees) > 180 {
		return utils.NewConfigValidationError(path, errors.Errorf("tilt_degrees must be within [-180, 180], got %v", cfg.TiltDegrees))
	}
	if cfg.Root == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "root")
	}
	return nil
}

// TiltCorrection rotates every position about the lateral (X) axis through the root joint, so
// the root itself never moves. Frames without the root rotate about the origin. Untracked
// channels are left in place.
type TiltCorrection struct {
	filter.Base
	rotation quat.Number
	root     frame.ChannelID
}

// NewTiltCorrection returns a tilt correction filter.
func NewTiltCorrection(conf filter.Config, cfg TiltCorrectionConfig) *TiltCorrection {
	return &TiltCorrection{
		Base:     filter.NewBase(conf),
		rotation: spatialmath.NewQuaternionFromAxisAngle(r3.Vector{X: 1}, spatialmath.DegToRad(cfg.TiltDegrees)),
		root:     frame.ChannelID(cfg.Root),
	}
}

// Apply tilts f.
func (t *TiltCorrection) Apply(f *frame.Frame) *frame.Frame {
	out := f.Clone()
	var pivot r3.Vector
	if root, ok := f.Channels[t.root]; ok {
		pivot = root.Position
	}
	for id, ch := range out.Channels {
		if id == t.root || ch.Tracking == frame.NotTracked {
			continue
		}
		ch.Position = spatialmath.RotateAbout(t.rotation, ch.Position, pivot)
		out.Channels[id] = ch
	}
	return out
}

// ApplyCache tilts the cache's current frame.
func (t *TiltCorrection) ApplyCache(c *cache.CaptureCache) (*frame.Frame, error) {
	return filter.ApplyCurrent(c, t.Apply)
}
