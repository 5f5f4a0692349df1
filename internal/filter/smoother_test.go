package filter

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mocap.report/internal/landmark"
)

func makeFrame(ts int64, landmarks ...float64) landmark.Frame {
	return landmark.Frame{TimestampMs: ts, Landmarks: landmarks}
}

func TestPoseSmootherDoesNotMutateInput(t *testing.T) {
	s := NewPoseSmoother(DefaultParams(), 0.5)

	in := makeFrame(0, 0.1, 0.2, 0.3, 0.9)
	s.Filter(in)
	in2 := makeFrame(33, 0.5, 0.6, 0.7, 0.9)
	out := s.Filter(in2)

	assert.Equal(t, []float64{0.5, 0.6, 0.7, 0.9}, in2.Landmarks, "input must not be mutated")
	assert.NotEqual(t, in2.Landmarks, out.Landmarks, "second sample should be filtered")
}

func TestPoseSmootherConvergesOnConstantInput(t *testing.T) {
	s := NewPoseSmoother(DefaultParams(), 0.5)
	rng := rand.New(rand.NewSource(7))

	// Feed a jittery signal around a fixed point, then hold it constant:
	// output converges to the constant.
	ts := int64(0)
	for i := 0; i < 50; i++ {
		jx := 0.01 * (rng.Float64()*2 - 1)
		s.Filter(makeFrame(ts, 0.4+jx, 0.5, 0.2, 0.95))
		ts += 33
	}
	var out landmark.Frame
	for i := 0; i < 200; i++ {
		out = s.Filter(makeFrame(ts, 0.4, 0.5, 0.2, 0.95))
		ts += 33
	}

	x, y, z, conf := out.Landmark(0)
	assert.InDelta(t, 0.4, x, 1e-4)
	assert.InDelta(t, 0.5, y, 1e-6)
	assert.InDelta(t, 0.2, z, 1e-6)
	assert.Equal(t, 0.95, conf, "confidence passes through unchanged")
}

func TestPoseSmootherGatesLowConfidence(t *testing.T) {
	s := NewPoseSmoother(DefaultParams(), 0.5)

	s.Filter(makeFrame(0, 0.1, 0.1, 0.1, 0.9))

	t.Run("below-gate landmark passes through unchanged", func(t *testing.T) {
		out := s.Filter(makeFrame(33, 0.8, 0.8, 0.8, 0.2))
		assert.Equal(t, []float64{0.8, 0.8, 0.8, 0.2}, out.Landmarks)
	})

	t.Run("gated samples do not advance filter state", func(t *testing.T) {
		// After the garbage sample above, a good sample filters against the
		// last trusted state (0.1...), not against 0.8.
		out := s.Filter(makeFrame(66, 0.1, 0.1, 0.1, 0.9))
		x, _, _, _ := out.Landmark(0)
		assert.InDelta(t, 0.1, x, 0.01)
	})
}

func TestPoseSmootherSizesFromFirstFrame(t *testing.T) {
	s := NewPoseSmoother(DefaultParams(), 0.5)

	out := s.Filter(makeFrame(0, 0.1, 0.2, 0.3, 0.9, 0.4, 0.5, 0.6, 0.9))
	require.Equal(t, 2, out.NumLandmarks())

	// A later frame with more landmarks only filters the sized slots; the
	// extras still copy through.
	out = s.Filter(makeFrame(33,
		0.1, 0.2, 0.3, 0.9,
		0.4, 0.5, 0.6, 0.9,
		0.7, 0.8, 0.9, 0.9,
	))
	require.Equal(t, 3, out.NumLandmarks())
	x, y, z, conf := out.Landmark(2)
	assert.Equal(t, []float64{0.7, 0.8, 0.9, 0.9}, []float64{x, y, z, conf})
}

func TestPoseSmootherReset(t *testing.T) {
	s := NewPoseSmoother(DefaultParams(), 0.5)
	s.Filter(makeFrame(0, 0.1, 0.2, 0.3, 0.9))
	s.Reset()

	// After reset the first frame is a bootstrap passthrough again.
	out := s.Filter(makeFrame(1000, 0.9, 0.8, 0.7, 0.9))
	assert.Equal(t, []float64{0.9, 0.8, 0.7, 0.9}, out.Landmarks)
}
