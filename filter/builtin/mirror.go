package builtin

import (
	"go.viam.com/posecap/cache"
	"go.viam.com/posecap/filter"
	"go.viam.com/posecap/frame"
	"go.viam.com/posecap/logging"
	"go.viam.com/posecap/spatialmath"
)

// ModelMirror reflects a frame left to right.
const ModelMirror = "mirror"

func init() {
	filter.Register(ModelMirror, filter.Registration[*MirrorConfig]{
		Constructor: func(conf filter.Config, logger logging.Logger) (filter.Filter, error) {
			return NewMirror(conf), nil
		},
	})
}

// MirrorConfig is empty; the left/right pairs come from the frame's topology.
type MirrorConfig struct{}

// Validate ensures all parts of the config are valid.
func (cfg *MirrorConfig) Validate(path string) error {
	return nil
}

// Mirror swaps every left/right channel pair of the frame's topology and reflects positions
// and orientations through the YZ plane. Applying it twice restores the input.
type Mirror struct {
	filter.Base
}

// NewMirror returns a mirror filter.
func NewMirror(conf filter.Config) *Mirror {
	return &Mirror{Base: filter.NewBase(conf)}
}

// Apply mirrors f.
func (m *Mirror) Apply(f *frame.Frame) *frame.Frame {
	out := f.Clone()
	for _, pair := range frame.TopologyFor(f.Kind).Pairs {
		left, hasLeft := f.Channels[pair.Left]
		right, hasRight := f.Channels[pair.Right]
		delete(out.Channels, pair.Left)
		delete(out.Channels, pair.Right)
		if hasLeft {
			out.Channels[pair.Right] = left
		}
		if hasRight {
			out.Channels[pair.Left] = right
		}
	}
	for id, ch := range out.Channels {
		ch.Position = spatialmath.MirrorPositionX(ch.Position)
		ch.Orientation = spatialmath.MirrorX(ch.Orientation)
		out.Channels[id] = ch
	}
	out.Orientation = spatialmath.MirrorX(f.Orientation)
	return out
}

// ApplyCache mirrors the cache's current frame.
func (m *Mirror) ApplyCache(c *cache.CaptureCache) (*frame.Frame, error) {
	return filter.ApplyCurrent(c, m.Apply)
}
