package filter

import "github.com/banshee-data/mocap.report/internal/landmark"

// DefaultConfidenceGate is the minimum landmark confidence required before a
// sample is fed to the filter.
const DefaultConfidenceGate = 0.5

// PoseSmoother applies a One-Euro filter per landmark slot across a frame.
// Landmarks below the confidence gate pass through untouched and do not
// advance their filter state: feeding likely-garbage samples would corrupt
// the derivative estimate and overshoot once confidence recovers.
type PoseSmoother struct {
	params  Params
	gate    float64
	filters []*OneEuro3D
}

// NewPoseSmoother creates a smoother with the given filter parameters and
// confidence gate. Filters are sized lazily from the first frame seen.
func NewPoseSmoother(params Params, confidenceGate float64) *PoseSmoother {
	return &PoseSmoother{params: params, gate: confidenceGate}
}

// Filter smooths a frame and returns a new frame; the input is never
// mutated. Confidence values are copied through unchanged.
func (s *PoseSmoother) Filter(frame landmark.Frame) landmark.Frame {
	n := frame.NumLandmarks()
	if s.filters == nil {
		s.filters = make([]*OneEuro3D, n)
		for i := range s.filters {
			s.filters[i] = NewOneEuro3D(s.params)
		}
	}

	out := frame
	out.Landmarks = make([]float64, len(frame.Landmarks))
	copy(out.Landmarks, frame.Landmarks)

	ts := float64(frame.TimestampMs)
	for i := 0; i < n && i < len(s.filters); i++ {
		x, y, z, conf := frame.Landmark(i)
		if conf < s.gate {
			continue
		}
		fx, fy, fz := s.filters[i].Filter(x, y, z, ts)
		base := i * landmark.Stride
		out.Landmarks[base] = fx
		out.Landmarks[base+1] = fy
		out.Landmarks[base+2] = fz
	}
	return out
}

// Reset clears all per-landmark filter state and the lazy sizing, so the
// smoother can be reused across recordings.
func (s *PoseSmoother) Reset() {
	s.filters = nil
}
