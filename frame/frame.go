// Package frame defines a single timestamped pose sample: skeleton joints or face animation
// units keyed by channel, each carrying a position, an orientation and a scalar value.
package frame

import (
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/posecap/spatialmath"
	"go.viam.com/posecap/utils"
)

// Kind is the rig family a frame belongs to.
type Kind int

// The rig families a device can produce.
const (
	Skeleton Kind = iota
	Face
)

func (k Kind) String() string {
	switch k {
	case Skeleton:
		return "skeleton"
	case Face:
		return "face"
	}
	return "unknown"
}

// ParseKind parses the name of a rig family.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "skeleton", "":
		return Skeleton, nil
	case "face":
		return Face, nil
	}
	return Skeleton, errors.Errorf("unknown rig kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// TrackingState is the confidence the device reported for a channel.
type TrackingState int

// Tracking confidences, least to most certain.
const (
	NotTracked TrackingState = iota
	Inferred
	Tracked
)

func (s TrackingState) String() string {
	switch s {
	case NotTracked:
		return "not_tracked"
	case Inferred:
		return "inferred"
	case Tracked:
		return "tracked"
	}
	return "unknown"
}

// Channel is the value of one joint or animation unit.
type Channel struct {
	Position    r3.Vector     `json:"position"`
	Orientation quat.Number   `json:"orientation"`
	Value       float64       `json:"value"`
	Tracking    TrackingState `json:"tracking"`
}

// NewChannel returns an untracked channel at the origin with identity orientation.
func NewChannel() Channel {
	return Channel{Orientation: spatialmath.NewIdentityQuaternion()}
}

// Frame is one complete pose sample. Frames are treated as values: filters produce new frames
// with Clone rather than modifying their input.
type Frame struct {
	Kind      Kind    `json:"kind"`
	ElapsedMs float64 `json:"elapsed_ms"`

	// Orientation is the root rotation of the body or head.
	Orientation quat.Number           `json:"orientation"`
	Channels    map[ChannelID]Channel `json:"channels"`
}

// New returns an empty frame of the given kind.
func New(kind Kind) *Frame {
	return &Frame{
		Kind:        kind,
		Orientation: spatialmath.NewIdentityQuaternion(),
		Channels:    map[ChannelID]Channel{},
	}
}

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Kind:        f.Kind,
		ElapsedMs:   f.ElapsedMs,
		Orientation: f.Orientation,
		Channels:    make(map[ChannelID]Channel, len(f.Channels)),
	}
	for id, ch := range f.Channels {
		out.Channels[id] = ch
	}
	return out
}

// Channel returns the named channel and whether it is present.
func (f *Frame) Channel(id ChannelID) (Channel, bool) {
	ch, ok := f.Channels[id]
	return ch, ok
}

// Set stores a channel value.
func (f *Frame) Set(id ChannelID, ch Channel) {
	if f.Channels == nil {
		f.Channels = map[ChannelID]Channel{}
	}
	f.Channels[id] = ch
}

// Value returns the scalar value of a channel, zero when absent.
func (f *Frame) Value(id ChannelID) float64 {
	return f.Channels[id].Value
}

// SetValue sets the scalar value of a channel, adding the channel if absent.
func (f *Frame) SetValue(id ChannelID, v float64) {
	ch, ok := f.Channels[id]
	if !ok {
		ch = NewChannel()
		ch.Tracking = Tracked
	}
	ch.Value = v
	f.Set(id, ch)
}

// IDs returns the channel identifiers present in f in sorted order.
func (f *Frame) IDs() []ChannelID {
	ids := make([]ChannelID, 0, len(f.Channels))
	for id := range f.Channels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AlmostEqual reports whether two frames hold the same channels with every component within
// tol. Orientations are compared as rotations, so q and -q are equal.
func (f *Frame) AlmostEqual(other *Frame, tol float64) bool {
	if f.Kind != other.Kind || len(f.Channels) != len(other.Channels) {
		return false
	}
	if !spatialmath.QuaternionAlmostEqual(f.Orientation, other.Orientation, tol) {
		return false
	}
	for id, a := range f.Channels {
		b, ok := other.Channels[id]
		if !ok || a.Tracking != b.Tracking {
			return false
		}
		if !utils.Float64AlmostEqual(a.Value, b.Value, tol) ||
			!utils.Float64AlmostEqual(a.Position.X, b.Position.X, tol) ||
			!utils.Float64AlmostEqual(a.Position.Y, b.Position.Y, tol) ||
			!utils.Float64AlmostEqual(a.Position.Z, b.Position.Z, tol) {
			return false
		}
		if !spatialmath.QuaternionAlmostEqual(a.Orientation, b.Orientation, tol) {
			return false
		}
	}
	return true
}
