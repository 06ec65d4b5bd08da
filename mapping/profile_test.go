package mapping

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/posecap/frame"
	"go.viam.com/posecap/spatialmath"
)

func faceFrame() *frame.Frame {
	f := frame.FaceTopology.NewFrame()
	for i, id := range frame.FaceTopology.Channels {
		f.SetValue(id, 0.05*float64(i+1))
	}
	return f
}

func skeletonFrame() *frame.Frame {
	f := frame.SkeletonTopology.NewFrame()
	for i, id := range frame.SkeletonTopology.Channels {
		f.Set(id, frame.Channel{
			Position:    r3.Vector{X: float64(i), Y: 1, Z: 2},
			Orientation: spatialmath.NewQuaternionFromAxisAngle(r3.Vector{X: 0.2, Y: 1, Z: 0.1}, 0.1*float64(i)),
			Tracking:    frame.Tracked,
		})
	}
	f.Orientation = spatialmath.NewQuaternionFromAxisAngle(r3.Vector{Y: 1}, 0.8)
	return f
}

func TestGroupTables(t *testing.T) {
	for _, table := range []GroupTable{FaceGroups, SkeletonGroups} {
		test.That(t, table.Members, test.ShouldHaveLength, len(table.Groups))
		seen := map[frame.ChannelID]bool{}
		for _, g := range table.Groups {
			for _, id := range table.Members[g] {
				test.That(t, seen[id], test.ShouldBeFalse)
				seen[id] = true
			}
		}
	}
	// every joint belongs to a limb.
	for _, id := range frame.SkeletonTopology.Channels {
		_, ok := Identity(frame.Skeleton).GroupOf(id)
		test.That(t, ok, test.ShouldBeFalse)
		p, err := New(ProfileSkeleton, frame.Skeleton)
		test.That(t, err, test.ShouldBeNil)
		_, ok = p.GroupOf(id)
		test.That(t, ok, test.ShouldBeTrue)
	}
}

func TestMaskZeroing(t *testing.T) {
	p, err := New(ProfileFace, frame.Face)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Mask(), test.ShouldEqual, p.FullMask())

	in := faceFrame()
	test.That(t, p.Map(in).AlmostEqual(in, 0), test.ShouldBeTrue)

	test.That(t, p.Disable(GroupCheekPuff), test.ShouldBeNil)
	test.That(t, p.Enabled(GroupCheekPuff), test.ShouldBeFalse)
	out := p.Map(in)
	for id, ch := range out.Channels {
		if id == frame.LeftCheekPuff || id == frame.RightCheekPuff {
			test.That(t, ch.Value, test.ShouldEqual, 0.0)
			continue
		}
		test.That(t, ch, test.ShouldResemble, in.Channels[id])
	}
	test.That(t, in.Value(frame.LeftCheekPuff), test.ShouldNotEqual, 0.0)

	test.That(t, p.Enable(GroupCheekPuff), test.ShouldBeNil)
	test.That(t, p.Map(in).AlmostEqual(in, 0), test.ShouldBeTrue)

	test.That(t, p.Disable("Nose"), test.ShouldNotBeNil)
	test.That(t, p.Enabled("Nose"), test.ShouldBeFalse)
}

func TestMaskEmptyGroup(t *testing.T) {
	p, err := New(ProfileFace, frame.Face)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Disable(GroupBrowRaiser), test.ShouldBeNil)
	in := faceFrame()
	test.That(t, p.Map(in).AlmostEqual(in, 0), test.ShouldBeTrue)
}

func TestSetMask(t *testing.T) {
	p, err := New(ProfileSkeleton, frame.Skeleton)
	test.That(t, err, test.ShouldBeNil)

	m, err := p.MaskOf(GroupTorso, GroupHead)
	test.That(t, err, test.ShouldBeNil)
	p.SetMask(m | 1<<40)
	test.That(t, p.Mask(), test.ShouldEqual, m)

	in := skeletonFrame()
	out := p.Map(in)
	test.That(t, out.Channels[frame.Head], test.ShouldResemble, in.Channels[frame.Head])
	test.That(t, out.Channels[frame.SpineBase], test.ShouldResemble, in.Channels[frame.SpineBase])
	hand := out.Channels[frame.HandLeft]
	test.That(t, hand.Position, test.ShouldResemble, r3.Vector{})
	test.That(t, hand.Orientation, test.ShouldResemble, in.Channels[frame.HandLeft].Orientation)
	test.That(t, out.Channels[frame.FootRight].Position, test.ShouldResemble, r3.Vector{})

	_, err = p.MaskOf(GroupTorso, GroupJawOpen)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestOrientationModes(t *testing.T) {
	p, err := New(ProfileSkeleton, frame.Skeleton)
	test.That(t, err, test.ShouldBeNil)
	in := skeletonFrame()

	p.SetOrientationMode(OrientationIdentity)
	out := p.Map(in)
	test.That(t, out.Orientation, test.ShouldResemble, spatialmath.NewIdentityQuaternion())
	for _, ch := range out.Channels {
		test.That(t, ch.Orientation, test.ShouldResemble, spatialmath.NewIdentityQuaternion())
	}

	p.SetOrientationMode(OrientationInvertYaw)
	out = p.Map(in)
	test.That(t, spatialmath.QuaternionAlmostEqual(out.Orientation,
		spatialmath.NewQuaternionFromAxisAngle(r3.Vector{Y: 1}, -0.8), 1e-9), test.ShouldBeTrue)
	test.That(t, p.Map(out).AlmostEqual(in, 1e-9), test.ShouldBeTrue)
	for id, ch := range out.Channels {
		test.That(t, ch.Position, test.ShouldResemble, in.Channels[id].Position)
	}
	test.That(t, p.OrientationMode().String(), test.ShouldEqual, "invert_yaw")

	var mode OrientationMode
	test.That(t, mode.UnmarshalText([]byte("identity")), test.ShouldBeNil)
	test.That(t, mode, test.ShouldEqual, OrientationIdentity)
	test.That(t, mode.UnmarshalText([]byte("sideways")), test.ShouldNotBeNil)
}

func TestRegistry(t *testing.T) {
	test.That(t, Compatible(frame.Face, frame.Face), test.ShouldResemble, []string{ProfileFace, ProfileFaceIdentity})
	test.That(t, Compatible(frame.Face, frame.Skeleton), test.ShouldBeEmpty)

	_, err := New(ProfileFace, frame.Skeleton)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = New("missing", frame.Skeleton)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, ProfileSkeleton)

	test.That(t, func() {
		Register(ProfileFace, Registration{Constructor: func(name string) *Profile { return Identity(frame.Face) }})
	}, test.ShouldPanic)

	a, err := New(ProfileFace, frame.Face)
	test.That(t, err, test.ShouldBeNil)
	b, err := New(ProfileFace, frame.Face)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Disable(GroupJawOpen), test.ShouldBeNil)
	test.That(t, b.Enabled(GroupJawOpen), test.ShouldBeTrue)

	in := skeletonFrame()
	test.That(t, Identity(frame.Skeleton).Map(in).AlmostEqual(in, 0), test.ShouldBeTrue)
	test.That(t, DefaultFor(frame.Face), test.ShouldEqual, ProfileFace)
}
