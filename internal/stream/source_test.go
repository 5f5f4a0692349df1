package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"zero value", Options{}, false},
		{"full valid", Options{Model: "full", MinConfidence: 0.5, MinPoseConfidence: 0.5, TargetFPS: 60, EmitEveryNthFrame: 2}, false},
		{"bounds inclusive", Options{MinConfidence: 1, MinPoseConfidence: 0}, false},
		{"min confidence negative", Options{MinConfidence: -0.1}, true},
		{"min confidence above one", Options{MinConfidence: 1.1}, true},
		{"pose confidence above one", Options{MinPoseConfidence: 2}, true},
		{"negative fps", Options{TargetFPS: -1}, true},
		{"negative decimation", Options{EmitEveryNthFrame: -3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOptionsInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
