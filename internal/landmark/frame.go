// Package landmark defines the pose landmark frame model shared by the
// capture, persistence and export layers.
package landmark

import "fmt"

// Stride is the number of values per landmark: x, y, z, confidence.
const Stride = 4

// Frame is one timestamped set of body-pose landmarks. Landmarks is a flat
// sequence of x/y/z/confidence quadruples: x and y are normalised image-space
// coordinates in [0,1], z is a relative depth value, confidence is in [0,1].
type Frame struct {
	// TimestampMs is a monotonic capture timestamp in milliseconds,
	// best-effort increasing across a stream.
	TimestampMs int64 `json:"timestamp_ms"`

	// FrameID is an optional upstream frame counter (0 if unknown).
	FrameID uint64 `json:"frame_id,omitempty"`

	// FPSHint is an optional frame-rate hint from the source (0 if unknown).
	FPSHint float64 `json:"fps_hint,omitempty"`

	Landmarks []float64 `json:"landmarks"`
}

// NumLandmarks returns the number of complete landmarks in the frame.
func (f *Frame) NumLandmarks() int {
	return len(f.Landmarks) / Stride
}

// Landmark returns the i-th landmark as (x, y, z, confidence).
// The caller is responsible for bounds; use NumLandmarks.
func (f *Frame) Landmark(i int) (x, y, z, conf float64) {
	base := i * Stride
	return f.Landmarks[base], f.Landmarks[base+1], f.Landmarks[base+2], f.Landmarks[base+3]
}

// Confidence returns the i-th landmark's confidence value.
func (f *Frame) Confidence(i int) float64 {
	return f.Landmarks[i*Stride+3]
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() Frame {
	out := *f
	out.Landmarks = make([]float64, len(f.Landmarks))
	copy(out.Landmarks, f.Landmarks)
	return out
}

// Validate checks the frame invariants: the landmark sequence length is a
// multiple of Stride and every confidence value lies in [0,1].
func (f *Frame) Validate() error {
	if len(f.Landmarks)%Stride != 0 {
		return fmt.Errorf("landmark sequence length %d is not a multiple of %d", len(f.Landmarks), Stride)
	}
	for i := 0; i < f.NumLandmarks(); i++ {
		if c := f.Confidence(i); c < 0 || c > 1 {
			return fmt.Errorf("landmark %d confidence %f outside [0,1]", i, c)
		}
	}
	return nil
}
