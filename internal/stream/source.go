// Package stream defines the pose-stream source port consumed by the
// capture pipeline, along with a synthetic mock implementation and the
// observable capture state shared across pipeline stages.
package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/mocap.report/internal/landmark"
)

// ErrOptionsInvalid is returned when stream options fail validation.
var ErrOptionsInvalid = errors.New("invalid stream options")

// Options configure a stream source start.
type Options struct {
	// Model names the pose model variant the source should load.
	Model string `json:"model,omitempty"`

	// MinConfidence is the per-landmark detection threshold in [0,1].
	MinConfidence float64 `json:"min_confidence"`

	// MinPoseConfidence is the whole-pose presence threshold in [0,1].
	MinPoseConfidence float64 `json:"min_pose_confidence"`

	// TargetFPS is the requested capture rate (0 for source default).
	TargetFPS int `json:"target_fps,omitempty"`

	// EmitEveryNthFrame decimates the stream (0 or 1 emits every frame).
	EmitEveryNthFrame int `json:"emit_every_nth_frame,omitempty"`

	Debug bool `json:"debug,omitempty"`
}

// Validate checks option bounds. Confidence thresholds outside [0,1] reject
// immediately at the call that detected them.
func (o Options) Validate() error {
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence %f outside [0,1]", ErrOptionsInvalid, o.MinConfidence)
	}
	if o.MinPoseConfidence < 0 || o.MinPoseConfidence > 1 {
		return fmt.Errorf("%w: min_pose_confidence %f outside [0,1]", ErrOptionsInvalid, o.MinPoseConfidence)
	}
	if o.TargetFPS < 0 {
		return fmt.Errorf("%w: target_fps %d is negative", ErrOptionsInvalid, o.TargetFPS)
	}
	if o.EmitEveryNthFrame < 0 {
		return fmt.Errorf("%w: emit_every_nth_frame %d is negative", ErrOptionsInvalid, o.EmitEveryNthFrame)
	}
	return nil
}

// PingResult reports source liveness and version.
type PingResult struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}

// Listener receives landmark frames delivered asynchronously, best-effort
// timestamp-ordered.
type Listener func(frame landmark.Frame)

// Source is the capability interface for a pose frame producer. There are
// two implementations: the synthetic MockSource in this package, and
// platform-bound sources injected by the embedding application. Selection is
// by dependency injection, never dynamic loading.
type Source interface {
	// Ping checks the source is reachable.
	Ping(ctx context.Context) (PingResult, error)

	// Start begins frame delivery with the given options.
	Start(ctx context.Context, opts Options) error

	// Stop halts frame delivery.
	Stop(ctx context.Context) error

	// AddListener registers a frame callback and returns its unsubscribe
	// function.
	AddListener(fn Listener) (unsubscribe func())
}
