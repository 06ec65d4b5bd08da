package mapping

import "go.viam.com/posecap/frame"

// Group is a semantic set of channels sharing one mask bit.
type Group string

// Face groups.
const (
	GroupJawOpen            Group = "JawOpen"
	GroupJawSlide           Group = "JawSlide"
	GroupLipPucker          Group = "LipPucker"
	GroupLipStretcher       Group = "LipStretcher"
	GroupBrowLower          Group = "BrowLower"
	GroupLipCornerDepressor Group = "LipCornerDepressor"
	GroupLowerLipDepressor  Group = "LowerLipDepressor"
	GroupBrowRaiser         Group = "BrowRaiser"
	GroupLipCornerPuller    Group = "LipCornerPuller"
	GroupCheekPuff          Group = "CheekPuff"
	GroupEyeClosed          Group = "EyeClosed"
)

// Skeleton groups.
const (
	GroupTorso    Group = "Torso"
	GroupHead     Group = "Head"
	GroupLeftArm  Group = "LeftArm"
	GroupRightArm Group = "RightArm"
	GroupLeftLeg  Group = "LeftLeg"
	GroupRightLeg Group = "RightLeg"
)

// A GroupTable lists a rig's groups in mask bit order with the channels each one holds.
type GroupTable struct {
	Groups  []Group
	Members map[Group][]frame.ChannelID
}

// FaceGroups groups the face animation units. BrowRaiser has no animation unit on the
// supported devices and masking it has no effect.
var FaceGroups = GroupTable{
	Groups: []Group{
		GroupJawOpen, GroupLipStretcher, GroupBrowLower, GroupLipCornerDepressor, GroupBrowRaiser,
		GroupLipCornerPuller, GroupCheekPuff, GroupEyeClosed, GroupLipPucker, GroupJawSlide,
		GroupLowerLipDepressor,
	},
	Members: map[Group][]frame.ChannelID{
		GroupJawOpen:            {frame.JawOpen},
		GroupLipStretcher:       {frame.LipStretcherLeft, frame.LipStretcherRight},
		GroupBrowLower:          {frame.LeftEyebrowLowerer, frame.RightEyebrowLowerer},
		GroupLipCornerDepressor: {frame.LipCornerDepressorLeft, frame.LipCornerDepressorRight},
		GroupBrowRaiser:         nil,
		GroupLipCornerPuller:    {frame.LipCornerPullerLeft, frame.LipCornerPullerRight},
		GroupCheekPuff:          {frame.LeftCheekPuff, frame.RightCheekPuff},
		GroupEyeClosed:          {frame.LeftEyeClosed, frame.RightEyeClosed},
		GroupLipPucker:          {frame.LipPucker},
		GroupJawSlide:           {frame.JawSlideRight},
		GroupLowerLipDepressor:  {frame.LowerLipDepressorLeft, frame.LowerLipDepressorRight},
	},
}

// SkeletonGroups groups the body joints into limbs.
var SkeletonGroups = GroupTable{
	Groups: []Group{GroupTorso, GroupHead, GroupLeftArm, GroupRightArm, GroupLeftLeg, GroupRightLeg},
	Members: map[Group][]frame.ChannelID{
		GroupTorso:    {frame.SpineBase, frame.SpineMid, frame.SpineShoulder, frame.HipLeft, frame.HipRight},
		GroupHead:     {frame.Neck, frame.Head},
		GroupLeftArm:  {frame.ShoulderLeft, frame.ElbowLeft, frame.WristLeft, frame.HandLeft, frame.HandTipLeft, frame.ThumbLeft},
		GroupRightArm: {frame.ShoulderRight, frame.ElbowRight, frame.WristRight, frame.HandRight, frame.HandTipRight, frame.ThumbRight},
		GroupLeftLeg:  {frame.KneeLeft, frame.AnkleLeft, frame.FootLeft},
		GroupRightLeg: {frame.KneeRight, frame.AnkleRight, frame.FootRight},
	},
}

// GroupsFor returns the built in group table of a rig kind.
func GroupsFor(kind frame.Kind) GroupTable {
	if kind == frame.Face {
		return FaceGroups
	}
	return SkeletonGroups
}
