package landmark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameAccessors(t *testing.T) {
	f := Frame{
		TimestampMs: 1234,
		Landmarks: []float64{
			0.1, 0.2, 0.3, 0.9,
			0.4, 0.5, 0.6, 0.8,
		},
	}

	require.Equal(t, 2, f.NumLandmarks())

	x, y, z, conf := f.Landmark(1)
	assert.Equal(t, 0.4, x)
	assert.Equal(t, 0.5, y)
	assert.Equal(t, 0.6, z)
	assert.Equal(t, 0.8, conf)
	assert.Equal(t, 0.9, f.Confidence(0))
}

func TestFrameValidate(t *testing.T) {
	tests := []struct {
		name      string
		landmarks []float64
		wantErr   bool
	}{
		{"empty", nil, false},
		{"one landmark", []float64{0.1, 0.2, 0.3, 0.5}, false},
		{"length not multiple of stride", []float64{0.1, 0.2, 0.3}, true},
		{"confidence above one", []float64{0.1, 0.2, 0.3, 1.5}, true},
		{"confidence negative", []float64{0.1, 0.2, 0.3, -0.1}, true},
		{"boundary confidences", []float64{0, 0, 0, 0, 1, 1, 1, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Frame{Landmarks: tt.landmarks}
			err := f.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFrameClone(t *testing.T) {
	f := Frame{TimestampMs: 5, Landmarks: []float64{0.1, 0.2, 0.3, 0.9}}
	c := f.Clone()
	c.Landmarks[0] = 0.99

	assert.Equal(t, 0.1, f.Landmarks[0], "clone must not alias the original")
	assert.Equal(t, f.TimestampMs, c.TimestampMs)
}
