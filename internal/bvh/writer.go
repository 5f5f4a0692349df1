// Package bvh renders a sequence of pose frames as a BVH skeletal-animation
// document: a depth-first HIERARCHY section derived from the rest pose,
// followed by a MOTION section of per-frame channel values in exactly the
// same joint order.
package bvh

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mocap.report/internal/landmark"
	"github.com/banshee-data/mocap.report/internal/rig"
)

// FallbackFPS is used when neither the caller nor the frame timestamps
// provide a usable frame rate.
const FallbackFPS = 30

// ErrNoFrames is returned when an export has zero frames: without a first
// frame there is no rest pose to build the hierarchy from.
var ErrNoFrames = errors.New("no frames to export")

// Writer renders frames for one take against a fixed rig. The rest pose is
// taken from the first frame.
type Writer struct {
	rig *rig.Rig
}

// NewWriter creates a Writer for the given rig.
func NewWriter(r *rig.Rig) *Writer {
	return &Writer{rig: r}
}

// Render produces the complete BVH document for the frames. fps <= 0 falls
// back to a rate estimated from the frame timestamps, then to FallbackFPS.
func (w *Writer) Render(frames []landmark.Frame, fps float64) (string, error) {
	var sb strings.Builder
	if err := w.Write(&sb, frames, fps); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write renders the BVH document for the frames to out.
func (w *Writer) Write(out io.Writer, frames []landmark.Frame, fps float64) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}

	rest := w.rig.SolvePose(&frames[0])
	order := w.depthFirstOrder()

	if fps <= 0 {
		fps = estimateFPS(frames)
	}

	var sb strings.Builder
	sb.WriteString("HIERARCHY\n")
	w.writeJoint(&sb, rig.Hips, rest, 0)

	sb.WriteString("MOTION\n")
	fmt.Fprintf(&sb, "Frames: %d\n", len(frames))
	fmt.Fprintf(&sb, "Frame Time: %s\n", formatValue(1/fps))

	for i := range frames {
		pose := w.rig.SolvePose(&frames[i])
		w.writeMotionLine(&sb, order, rest, pose)
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

// depthFirstOrder returns the joint emission order. The hierarchy and motion
// sections must use the identical order; deriving both from this one walk
// keeps them in lockstep.
func (w *Writer) depthFirstOrder() []rig.JointID {
	order := make([]rig.JointID, 0, rig.NumJoints)
	var walk func(id rig.JointID)
	walk = func(id rig.JointID) {
		order = append(order, id)
		for _, c := range w.rig.Children(id) {
			walk(c)
		}
	}
	walk(rig.Hips)
	return order
}

// writeJoint emits one joint of the hierarchy, recursing depth-first. The
// root carries translation plus rotation channels, every other joint
// rotation only; leaves are closed with a zero-length End Site.
func (w *Writer) writeJoint(sb *strings.Builder, id rig.JointID, rest rig.Pose, depth int) {
	indent := strings.Repeat("  ", depth)
	j := w.rig.Joint(id)

	offset := rest[id]
	if j.Parent < 0 {
		fmt.Fprintf(sb, "%sROOT %s\n", indent, j.Name)
		offset = r3.Vec{}
	} else {
		fmt.Fprintf(sb, "%sJOINT %s\n", indent, j.Name)
		offset = r3.Sub(offset, rest[j.Parent])
	}
	fmt.Fprintf(sb, "%s{\n", indent)
	fmt.Fprintf(sb, "%s  OFFSET %s %s %s\n", indent,
		formatValue(offset.X), formatValue(offset.Y), formatValue(offset.Z))
	if j.Parent < 0 {
		fmt.Fprintf(sb, "%s  CHANNELS 6 Xposition Yposition Zposition Zrotation Xrotation Yrotation\n", indent)
	} else {
		fmt.Fprintf(sb, "%s  CHANNELS 3 Zrotation Xrotation Yrotation\n", indent)
	}

	children := w.rig.Children(id)
	if len(children) == 0 {
		fmt.Fprintf(sb, "%s  End Site\n", indent)
		fmt.Fprintf(sb, "%s  {\n", indent)
		fmt.Fprintf(sb, "%s    OFFSET 0.000000 0.000000 0.000000\n", indent)
		fmt.Fprintf(sb, "%s  }\n", indent)
	}
	for _, c := range children {
		w.writeJoint(sb, c, rest, depth+1)
	}
	fmt.Fprintf(sb, "%s}\n", indent)
}

// boneRotation is the quaternion carrying the rest-pose direction from the
// joint to its first child onto the current-pose direction of the same pair.
// Joints with no children keep the identity rotation.
func (w *Writer) boneRotation(id rig.JointID, rest, pose rig.Pose) quat.Number {
	children := w.rig.Children(id)
	if len(children) == 0 {
		return rig.Identity
	}
	c := children[0]
	restDir := r3.Sub(rest[c], rest[id])
	curDir := r3.Sub(pose[c], pose[id])
	return rig.RotationBetween(restDir, curDir)
}

// writeMotionLine emits one frame of channel values in the depth-first joint
// order: root translation relative to the rest pose, then every joint's
// Z/X/Y rotation.
func (w *Writer) writeMotionLine(sb *strings.Builder, order []rig.JointID, rest, pose rig.Pose) {
	vals := make([]string, 0, 3+3*len(order))

	rootDelta := r3.Sub(pose[rig.Hips], rest[rig.Hips])
	vals = append(vals,
		formatValue(rootDelta.X), formatValue(rootDelta.Y), formatValue(rootDelta.Z))

	for _, id := range order {
		q := w.boneRotation(id, rest, pose)
		z, x, y := rig.EulerZXY(q)
		vals = append(vals, formatValue(z), formatValue(x), formatValue(y))
	}

	sb.WriteString(strings.Join(vals, " "))
	sb.WriteByte('\n')
}

// estimateFPS derives the output frame rate from the exported frames'
// timestamps, falling back to FallbackFPS for degenerate spans.
func estimateFPS(frames []landmark.Frame) float64 {
	if len(frames) < 2 {
		return FallbackFPS
	}
	spanSec := float64(frames[len(frames)-1].TimestampMs-frames[0].TimestampMs) / 1000
	if spanSec <= 0 {
		return FallbackFPS
	}
	return float64(len(frames)-1) / spanSec
}

// formatValue renders a channel value with 6 decimal places. Magnitudes
// below 1e-8 snap to exactly zero to avoid negative-zero artifacts.
func formatValue(v float64) string {
	if math.Abs(v) < 1e-8 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
