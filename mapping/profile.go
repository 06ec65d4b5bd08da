// Package mapping converts frames from an input rig's value space to an output rig's, zeroing
// the channel groups masked out and remapping orientations.
package mapping

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/posecap/frame"
	"go.viam.com/posecap/spatialmath"
)

// OrientationMode selects how Map treats rotations.
type OrientationMode int

// Orientation handling applied by Map.
const (
	// OrientationKeep leaves rotations as captured.
	OrientationKeep OrientationMode = iota
	// OrientationIdentity replaces every rotation with the identity.
	OrientationIdentity
	// OrientationInvertYaw reverses the rotation about the vertical axis, turning the sensor's
	// facing view into the rig's.
	OrientationInvertYaw
)

func (m OrientationMode) String() string {
	switch m {
	case OrientationKeep:
		return "keep"
	case OrientationIdentity:
		return "identity"
	case OrientationInvertYaw:
		return "invert_yaw"
	}
	return "unknown"
}

// ParseOrientationMode parses keep, identity or invert_yaw.
func ParseOrientationMode(s string) (OrientationMode, error) {
	switch s {
	case "keep", "":
		return OrientationKeep, nil
	case "identity":
		return OrientationIdentity, nil
	case "invert_yaw":
		return OrientationInvertYaw, nil
	}
	return OrientationKeep, errors.Errorf("unknown orientation mode %q, expected keep, identity or invert_yaw", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m OrientationMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *OrientationMode) UnmarshalText(text []byte) error {
	parsed, err := ParseOrientationMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Mask has one bit per group of a profile's table, set when the group passes through.
type Mask uint64

// Profile maps frames of one rig to another. Its mask and orientation mode may be changed
// between frames; changes apply from the next call to Map.
type Profile struct {
	name        string
	input       frame.Kind
	output      frame.Kind
	table       GroupTable
	groupOf     map[frame.ChannelID]Group
	mask        Mask
	orientation OrientationMode
}

// NewProfile returns a profile over table with every group enabled and rotations kept.
func NewProfile(name string, input, output frame.Kind, table GroupTable) *Profile {
	groupOf := map[frame.ChannelID]Group{}
	for group, members := range table.Members {
		for _, id := range members {
			groupOf[id] = group
		}
	}
	p := &Profile{
		name:    name,
		input:   input,
		output:  output,
		table:   table,
		groupOf: groupOf,
	}
	p.mask = p.FullMask()
	return p
}

// Name returns the name the profile was registered under.
func (p *Profile) Name() string {
	return p.name
}

// Input returns the rig kind the profile accepts.
func (p *Profile) Input() frame.Kind {
	return p.input
}

// Output returns the rig kind the profile produces.
func (p *Profile) Output() frame.Kind {
	return p.output
}

// Groups returns the profile's groups in mask bit order.
func (p *Profile) Groups() []Group {
	out := make([]Group, len(p.table.Groups))
	copy(out, p.table.Groups)
	return out
}

// GroupOf returns the group a channel belongs to.
func (p *Profile) GroupOf(id frame.ChannelID) (Group, bool) {
	g, ok := p.groupOf[id]
	return g, ok
}

func (p *Profile) bit(group Group) (Mask, error) {
	for i, g := range p.table.Groups {
		if g == group {
			return 1 << uint(i), nil
		}
	}
	return 0, errors.Errorf("profile %q has no group %q", p.name, group)
}

// FullMask returns the mask with every group enabled.
func (p *Profile) FullMask() Mask {
	return Mask(1)<<uint(len(p.table.Groups)) - 1
}

// MaskOf returns the mask enabling exactly the given groups.
func (p *Profile) MaskOf(groups ...Group) (Mask, error) {
	var m Mask
	for _, g := range groups {
		b, err := p.bit(g)
		if err != nil {
			return 0, err
		}
		m |= b
	}
	return m, nil
}

// Mask returns the current mask.
func (p *Profile) Mask() Mask {
	return p.mask
}

// SetMask replaces the mask. Bits beyond the profile's groups are ignored.
func (p *Profile) SetMask(m Mask) {
	p.mask = m & p.FullMask()
}

// Enable lets a group pass through.
func (p *Profile) Enable(group Group) error {
	b, err := p.bit(group)
	if err != nil {
		return err
	}
	p.mask |= b
	return nil
}

// Disable zeroes a group from the next mapped frame on.
func (p *Profile) Disable(group Group) error {
	b, err := p.bit(group)
	if err != nil {
		return err
	}
	p.mask &^= b
	return nil
}

// Enabled returns whether a group passes through. Unknown groups are not enabled.
func (p *Profile) Enabled(group Group) bool {
	b, err := p.bit(group)
	return err == nil && p.mask&b != 0
}

// OrientationMode returns how rotations are mapped.
func (p *Profile) OrientationMode() OrientationMode {
	return p.orientation
}

// SetOrientationMode changes how rotations are mapped.
func (p *Profile) SetOrientationMode(mode OrientationMode) {
	p.orientation = mode
}

// Map returns a copy of f in the output rig's space. Rotations follow the orientation mode and
// every channel of a masked group has its value and position zeroed. Channels outside any
// group pass through.
func (p *Profile) Map(f *frame.Frame) *frame.Frame {
	out := f.Clone()
	out.Kind = p.output
	out.Orientation = p.mapRotation(f.Orientation)
	for id, ch := range out.Channels {
		ch.Orientation = p.mapRotation(ch.Orientation)
		if group, ok := p.groupOf[id]; ok && !p.Enabled(group) {
			ch.Value = 0
			ch.Position = r3.Vector{}
		}
		out.Channels[id] = ch
	}
	return out
}

func (p *Profile) mapRotation(q quat.Number) quat.Number {
	switch p.orientation {
	case OrientationIdentity:
		return spatialmath.NewIdentityQuaternion()
	case OrientationInvertYaw:
		return spatialmath.InvertYaw(q)
	default:
		return q
	}
}
