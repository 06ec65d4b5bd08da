package frame

import "go.viam.com/posecap/spatialmath"

// ChannelID names a joint or an animation unit.
type ChannelID string

// Skeleton joints.
const (
	SpineBase     ChannelID = "SpineBase"
	SpineMid      ChannelID = "SpineMid"
	Neck          ChannelID = "Neck"
	Head          ChannelID = "Head"
	ShoulderLeft  ChannelID = "ShoulderLeft"
	ElbowLeft     ChannelID = "ElbowLeft"
	WristLeft     ChannelID = "WristLeft"
	HandLeft      ChannelID = "HandLeft"
	ShoulderRight ChannelID = "ShoulderRight"
	ElbowRight    ChannelID = "ElbowRight"
	WristRight    ChannelID = "WristRight"
	HandRight     ChannelID = "HandRight"
	HipLeft       ChannelID = "HipLeft"
	KneeLeft      ChannelID = "KneeLeft"
	AnkleLeft     ChannelID = "AnkleLeft"
	FootLeft      ChannelID = "FootLeft"
	HipRight      ChannelID = "HipRight"
	KneeRight     ChannelID = "KneeRight"
	AnkleRight    ChannelID = "AnkleRight"
	FootRight     ChannelID = "FootRight"
	SpineShoulder ChannelID = "SpineShoulder"
	HandTipLeft   ChannelID = "HandTipLeft"
	ThumbLeft     ChannelID = "ThumbLeft"
	HandTipRight  ChannelID = "HandTipRight"
	ThumbRight    ChannelID = "ThumbRight"
)

// Face animation units.
const (
	JawOpen                 ChannelID = "JawOpen"
	LipPucker               ChannelID = "LipPucker"
	JawSlideRight           ChannelID = "JawSlideRight"
	LipStretcherRight       ChannelID = "LipStretcherRight"
	LipStretcherLeft        ChannelID = "LipStretcherLeft"
	LipCornerPullerLeft     ChannelID = "LipCornerPullerLeft"
	LipCornerPullerRight    ChannelID = "LipCornerPullerRight"
	LipCornerDepressorLeft  ChannelID = "LipCornerDepressorLeft"
	LipCornerDepressorRight ChannelID = "LipCornerDepressorRight"
	LeftCheekPuff           ChannelID = "LeftCheekPuff"
	RightCheekPuff          ChannelID = "RightCheekPuff"
	LeftEyeClosed           ChannelID = "LeftEyeClosed"
	RightEyeClosed          ChannelID = "RightEyeClosed"
	RightEyebrowLowerer     ChannelID = "RightEyebrowLowerer"
	LeftEyebrowLowerer      ChannelID = "LeftEyebrowLowerer"
	LowerLipDepressorLeft   ChannelID = "LowerLipDepressorLeft"
	LowerLipDepressorRight  ChannelID = "LowerLipDepressorRight"
)

// Pair is a left channel and its right counterpart.
type Pair struct {
	Left  ChannelID
	Right ChannelID
}

// Topology is the set of channels a rig defines, its left/right symmetry and its root.
type Topology struct {
	Kind     Kind
	Channels []ChannelID
	Pairs    []Pair
	Root     ChannelID
}

// SkeletonTopology is the 25 joint body rig.
var SkeletonTopology = Topology{
	Kind: Skeleton,
	Channels: []ChannelID{
		SpineBase, SpineMid, Neck, Head,
		ShoulderLeft, ElbowLeft, WristLeft, HandLeft,
		ShoulderRight, ElbowRight, WristRight, HandRight,
		HipLeft, KneeLeft, AnkleLeft, FootLeft,
		HipRight, KneeRight, AnkleRight, FootRight,
		SpineShoulder, HandTipLeft, ThumbLeft, HandTipRight, ThumbRight,
	},
	Pairs: []Pair{
		{ShoulderLeft, ShoulderRight},
		{ElbowLeft, ElbowRight},
		{WristLeft, WristRight},
		{HandLeft, HandRight},
		{HipLeft, HipRight},
		{KneeLeft, KneeRight},
		{AnkleLeft, AnkleRight},
		{FootLeft, FootRight},
		{HandTipLeft, HandTipRight},
		{ThumbLeft, ThumbRight},
	},
	Root: SpineBase,
}

// FaceTopology is the 17 animation unit face rig.
var FaceTopology = Topology{
	Kind: Face,
	Channels: []ChannelID{
		JawOpen, LipPucker, JawSlideRight,
		LipStretcherRight, LipStretcherLeft,
		LipCornerPullerLeft, LipCornerPullerRight,
		LipCornerDepressorLeft, LipCornerDepressorRight,
		LeftCheekPuff, RightCheekPuff,
		LeftEyeClosed, RightEyeClosed,
		RightEyebrowLowerer, LeftEyebrowLowerer,
		LowerLipDepressorLeft, LowerLipDepressorRight,
	},
	Pairs: []Pair{
		{LipStretcherLeft, LipStretcherRight},
		{LipCornerPullerLeft, LipCornerPullerRight},
		{LipCornerDepressorLeft, LipCornerDepressorRight},
		{LeftCheekPuff, RightCheekPuff},
		{LeftEyeClosed, RightEyeClosed},
		{LeftEyebrowLowerer, RightEyebrowLowerer},
		{LowerLipDepressorLeft, LowerLipDepressorRight},
	},
}

// TopologyFor returns the built in topology for a rig kind.
func TopologyFor(kind Kind) Topology {
	if kind == Face {
		return FaceTopology
	}
	return SkeletonTopology
}

// Complete adds every channel of the topology missing from f as a not-tracked channel at the
// origin with identity orientation and zero value, so a frame is never partially populated.
// Zero quaternions reported for untracked channels are replaced with the identity.
func (t Topology) Complete(f *Frame) {
	if f.Channels == nil {
		f.Channels = map[ChannelID]Channel{}
	}
	for _, id := range t.Channels {
		ch, ok := f.Channels[id]
		if !ok {
			f.Channels[id] = NewChannel()
			continue
		}
		ch.Orientation = spatialmath.Normalize(ch.Orientation)
		f.Channels[id] = ch
	}
	f.Orientation = spatialmath.Normalize(f.Orientation)
}

// NewFrame returns a complete frame of the topology's kind with every channel untracked.
func (t Topology) NewFrame() *Frame {
	f := New(t.Kind)
	t.Complete(f)
	return f
}
