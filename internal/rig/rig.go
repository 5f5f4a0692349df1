// Package rig models the fixed skeleton used to interpret pose landmarks,
// and provides the vector and quaternion math shared by the reconstruction
// and animation-export paths.
package rig

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mocap.report/internal/landmark"
)

// JointID indexes a joint within the rig.
type JointID int

// Joint ids, in depth-first order from the root. This order is also the
// channel emission order of the BVH writer.
const (
	Hips JointID = iota
	Spine
	Neck
	Head
	LeftShoulder
	LeftElbow
	LeftWrist
	RightShoulder
	RightElbow
	RightWrist
	LeftHip
	LeftKnee
	LeftAnkle
	RightHip
	RightKnee
	RightAnkle

	NumJoints
)

// joint source kinds.
const (
	fromLandmark = iota
	fromMidpoint
	fromLerp
)

// Joint is one node of the rig tree. A joint either aliases a source
// landmark index or derives its position from other sources: the midpoint of
// two landmarks, or a point interpolated between two already-resolved joints.
type Joint struct {
	Name   string
	Parent JointID // -1 for the root

	kind     int
	landmark int       // fromLandmark
	midA     int       // fromMidpoint
	midB     int       // fromMidpoint
	lerpFrom JointID   // fromLerp
	lerpTo   JointID   // fromLerp
	lerpT    float64   // fromLerp
	children []JointID // filled by New
}

// Rig is a static directed tree of named joints rooted at the hip centre.
// It is shared and read-only for the lifetime of the process.
type Rig struct {
	// Scale converts normalised landmark space to rig units. The default of
	// 100 is arbitrary but fixed so exported numbers are human-legible.
	Scale float64

	joints [NumJoints]Joint
}

// DefaultScale is the normalised-space to rig-space scale factor.
const DefaultScale float64 = 100

// Source landmark indices follow the standard 33-point pose topology.
const (
	lmNose          = 0
	lmLeftShoulder  = 11
	lmRightShoulder = 12
	lmLeftElbow     = 13
	lmRightElbow    = 14
	lmLeftWrist     = 15
	lmRightWrist    = 16
	lmLeftHip       = 23
	lmRightHip      = 24
	lmLeftKnee      = 25
	lmRightKnee     = 26
	lmLeftAnkle     = 27
	lmRightAnkle    = 28
)

// New returns the standard 16-joint body rig at the given scale. A scale of
// 0 selects DefaultScale.
func New(scale float64) *Rig {
	if scale <= 0 {
		scale = DefaultScale
	}
	r := &Rig{Scale: scale}
	r.joints = [NumJoints]Joint{
		Hips:          {Name: "Hips", Parent: -1, kind: fromMidpoint, midA: lmLeftHip, midB: lmRightHip},
		Spine:         {Name: "Spine", Parent: Hips, kind: fromLerp, lerpFrom: Hips, lerpTo: Neck, lerpT: 0.5},
		Neck:          {Name: "Neck", Parent: Spine, kind: fromMidpoint, midA: lmLeftShoulder, midB: lmRightShoulder},
		Head:          {Name: "Head", Parent: Neck, kind: fromLandmark, landmark: lmNose},
		LeftShoulder:  {Name: "LeftShoulder", Parent: Neck, kind: fromLandmark, landmark: lmLeftShoulder},
		LeftElbow:     {Name: "LeftElbow", Parent: LeftShoulder, kind: fromLandmark, landmark: lmLeftElbow},
		LeftWrist:     {Name: "LeftWrist", Parent: LeftElbow, kind: fromLandmark, landmark: lmLeftWrist},
		RightShoulder: {Name: "RightShoulder", Parent: Neck, kind: fromLandmark, landmark: lmRightShoulder},
		RightElbow:    {Name: "RightElbow", Parent: RightShoulder, kind: fromLandmark, landmark: lmRightElbow},
		RightWrist:    {Name: "RightWrist", Parent: RightElbow, kind: fromLandmark, landmark: lmRightWrist},
		LeftHip:       {Name: "LeftHip", Parent: Hips, kind: fromLandmark, landmark: lmLeftHip},
		LeftKnee:      {Name: "LeftKnee", Parent: LeftHip, kind: fromLandmark, landmark: lmLeftKnee},
		LeftAnkle:     {Name: "LeftAnkle", Parent: LeftKnee, kind: fromLandmark, landmark: lmLeftAnkle},
		RightHip:      {Name: "RightHip", Parent: Hips, kind: fromLandmark, landmark: lmRightHip},
		RightKnee:     {Name: "RightKnee", Parent: RightHip, kind: fromLandmark, landmark: lmRightKnee},
		RightAnkle:    {Name: "RightAnkle", Parent: RightKnee, kind: fromLandmark, landmark: lmRightAnkle},
	}
	for id := JointID(0); id < NumJoints; id++ {
		if p := r.joints[id].Parent; p >= 0 {
			r.joints[p].children = append(r.joints[p].children, id)
		}
	}
	return r
}

// Joint returns the joint definition for id.
func (r *Rig) Joint(id JointID) Joint {
	return r.joints[id]
}

// Children returns the child joint ids of id, in depth-first declaration order.
func (r *Rig) Children(id JointID) []JointID {
	return r.joints[id].children
}

// Pose is the per-frame position of every joint in rig space.
type Pose [NumJoints]r3.Vec

// worldPoint applies the landmark→rig transform to landmark index i of the
// frame. The y axis is flipped so up is positive; z is negated so depth
// increases away from the camera. Missing landmark data degrades to the
// origin rather than failing the frame.
func (r *Rig) worldPoint(f *landmark.Frame, i int) r3.Vec {
	if i < 0 || i >= f.NumLandmarks() {
		return r3.Vec{}
	}
	x, y, z, _ := f.Landmark(i)
	return r3.Vec{
		X: (x - 0.5) * r.Scale,
		Y: (0.5 - y) * r.Scale,
		Z: -z * r.Scale,
	}
}

// SolvePose reconstructs the frame's joint positions. Joints derived from
// other joints (the spine) are resolved after their dependencies; the joint
// declaration order guarantees a dependency never follows its dependant
// except for the spine's forward reference to the neck, which is resolved in
// a second pass.
func (r *Rig) SolvePose(f *landmark.Frame) Pose {
	var pose Pose
	for id := JointID(0); id < NumJoints; id++ {
		j := &r.joints[id]
		switch j.kind {
		case fromLandmark:
			pose[id] = r.worldPoint(f, j.landmark)
		case fromMidpoint:
			a := r.worldPoint(f, j.midA)
			b := r.worldPoint(f, j.midB)
			pose[id] = r3.Scale(0.5, r3.Add(a, b))
		}
	}
	for id := JointID(0); id < NumJoints; id++ {
		j := &r.joints[id]
		if j.kind == fromLerp {
			from := pose[j.lerpFrom]
			to := pose[j.lerpTo]
			pose[id] = r3.Add(from, r3.Scale(j.lerpT, r3.Sub(to, from)))
		}
	}
	return pose
}
