// Package take defines recording-session (take) metadata, the persistence
// port used by the recorder and exporter, and its embedded SQLite
// implementation.
package take

import (
	"context"
	"errors"

	"github.com/banshee-data/mocap.report/internal/landmark"
)

// SchemaVersion is the current take schema version written to new takes.
const SchemaVersion = 1

// ErrTakeNotFound is returned for operations referencing an unknown take id.
var ErrTakeNotFound = errors.New("take not found")

// Take is one complete recording session with its running statistics.
// Counters are mutated per appended chunk; DurationMs and AvgFPS are set
// exactly once at finalize, after which only metadata edits (rename, delete)
// are legal.
type Take struct {
	ID            string  `json:"take_id"`
	ProjectID     string  `json:"project_id,omitempty"`
	Name          string  `json:"name"`
	CreatedMs     int64   `json:"created_ms"`
	UpdatedMs     int64   `json:"updated_ms"`
	FrameCount    int     `json:"frame_count"`
	DurationMs    int64   `json:"duration_ms"`
	AvgFPS        float64 `json:"avg_fps"`
	ChunkCount    int     `json:"chunk_count"`
	SchemaVersion int     `json:"schema_version"`
}

// ChunkInfo summarises one persisted chunk of frames.
type ChunkInfo struct {
	StartTs    int64 `json:"start_ts"`
	EndTs      int64 `json:"end_ts"`
	FrameCount int   `json:"frame_count"`
}

// Store is the persistence port for takes and their frame chunks. The
// recorder and exporter depend only on this interface; physical storage is
// assumed reliable by the core.
type Store interface {
	// CreateTake creates a new take with zero statistics.
	CreateTake(ctx context.Context, name, projectID string) (*Take, error)

	// AppendFrames persists one numbered chunk of frames and bumps the
	// take's frame/chunk counters. Chunk numbers from one recording are
	// strictly increasing with no gaps or repeats.
	AppendFrames(ctx context.Context, takeID string, chunkNumber int, frames []landmark.Frame) (*ChunkInfo, error)

	// FinalizeTake stamps the take's duration and average frame rate from
	// the recording's first and last frame timestamps.
	FinalizeTake(ctx context.Context, takeID string, firstTs, lastTs int64) (*Take, error)

	// GetTake returns a take by id, or ErrTakeNotFound.
	GetTake(ctx context.Context, takeID string) (*Take, error)

	// ListTakes returns all takes, newest first.
	ListTakes(ctx context.Context) ([]*Take, error)

	// ListFrames returns every frame of a take in chunk order.
	ListFrames(ctx context.Context, takeID string) ([]landmark.Frame, error)

	// RenameTake updates a take's display name.
	RenameTake(ctx context.Context, takeID, name string) error

	// DeleteTake removes the take and all its chunks atomically.
	DeleteTake(ctx context.Context, takeID string) error
}

// FinalStats computes the finalized statistics for a recording: duration
// from the first and last frame timestamps, average rate from the duration
// and frame count. A zero or negative span yields a zero rate.
func FinalStats(firstTs, lastTs int64, frameCount int) (durationMs int64, avgFPS float64) {
	durationMs = lastTs - firstTs
	if durationMs < 0 {
		durationMs = 0
	}
	if durationMs > 0 {
		avgFPS = float64(frameCount) / (float64(durationMs) / 1000)
	}
	return durationMs, avgFPS
}
