// Package record implements the recording session state machine: it buffers
// incoming landmark frames, flushes them to the persistence port in numbered
// chunks, and finalizes the take's statistics at stop.
package record

import (
	"context"
	"sync"

	"github.com/banshee-data/mocap.report/internal/landmark"
	"github.com/banshee-data/mocap.report/internal/monitoring"
	"github.com/banshee-data/mocap.report/internal/take"
)

// DefaultChunkFrames is the buffered frame count that triggers a flush.
const DefaultChunkFrames = 30

// State is the recorder lifecycle state.
type State int

// Recorder states. The only legal transitions are
// idle → recording (Start), recording → stopping (Stop), and
// stopping → idle once the drain completes.
const (
	StateIdle State = iota
	StateRecording
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Recorder buffers frames for one recording at a time and chunk-flushes them
// to the persistence port. All methods are safe for concurrent use; a single
// Recorder owns its session state exclusively.
type Recorder struct {
	store take.Store

	mu        sync.Mutex
	cond      *sync.Cond
	state     State
	take      *take.Take
	buf       []landmark.Frame
	firstTs   int64
	lastTs    int64
	haveTs    bool
	frames    int
	chunkN    int // chunk frame threshold for this recording
	nextChunk int

	// At-most-one-flush-in-flight coordination: flushBusy marks a drain in
	// progress, flushAgain records that another flush was requested while it
	// ran. The in-flight drain loops until both the buffer and the flag are
	// clear.
	flushBusy  bool
	flushAgain bool
	flushErr   error // first error from a chunk-boundary async flush
}

// NewRecorder creates a Recorder writing to the given persistence port.
func NewRecorder(store take.Store) *Recorder {
	r := &Recorder{store: store, state: StateIdle}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// BufferedCount returns the number of frames awaiting flush.
func (r *Recorder) BufferedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// FlushedChunkCount returns the number of chunks persisted so far in the
// active recording.
func (r *Recorder) FlushedChunkCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextChunk
}

// Take returns the active take, or nil when idle.
func (r *Recorder) Take() *take.Take {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.take
}

// StartRecording creates a new take and enters the recording state. Calling
// it while not idle is a no-op returning the active take. chunkFrames <= 0
// selects DefaultChunkFrames.
func (r *Recorder) StartRecording(ctx context.Context, name, projectID string, chunkFrames int) (*take.Take, error) {
	r.mu.Lock()
	if r.state != StateIdle {
		t := r.take
		r.mu.Unlock()
		return t, nil
	}
	r.mu.Unlock()

	if chunkFrames <= 0 {
		chunkFrames = DefaultChunkFrames
	}

	t, err := r.store.CreateTake(ctx, name, projectID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.state = StateRecording
	r.take = t
	r.buf = nil
	r.firstTs, r.lastTs, r.haveTs = 0, 0, false
	r.frames = 0
	r.chunkN = chunkFrames
	r.nextChunk = 0
	r.flushAgain = false
	r.flushErr = nil
	r.mu.Unlock()

	monitoring.Logf("recorder: started take %s (chunk size %d)", t.ID, chunkFrames)
	return t, nil
}

// PushFrame appends a frame to the in-memory buffer. It never fails: pushing
// while not recording is a silent no-op (a caller bug, not a normal path).
// When the buffer reaches the chunk size a flush is triggered without
// waiting for it to finish.
func (r *Recorder) PushFrame(frame landmark.Frame) {
	r.mu.Lock()
	if r.state != StateRecording || r.take == nil {
		r.mu.Unlock()
		return
	}

	r.buf = append(r.buf, frame.Clone())
	if !r.haveTs {
		r.firstTs = frame.TimestampMs
		r.haveTs = true
	}
	r.lastTs = frame.TimestampMs
	r.frames++
	full := len(r.buf) >= r.chunkN
	r.mu.Unlock()

	if full {
		go func() {
			if err := r.Flush(context.Background()); err != nil {
				r.mu.Lock()
				if r.flushErr == nil {
					r.flushErr = err
				}
				r.mu.Unlock()
				monitoring.Logf("recorder: flush failed: %v", err)
			}
		}()
	}
}

// Flush drains the buffer to the persistence port. If a flush is already in
// flight the request is recorded for that flush to pick up, and Flush
// returns immediately. Each drain removes the whole buffer atomically, so
// frames pushed during the write accumulate into a fresh buffer and are
// never lost; the write itself runs outside the recorder lock. Chunk
// numbers are strictly increasing with no gaps and no repeats.
//
// A persistence error is returned to the caller with the drained frames
// restored to the front of the buffer, so a retry reissues the same chunk
// number.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	if r.flushBusy {
		r.flushAgain = true
		r.mu.Unlock()
		return nil
	}
	r.flushBusy = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.flushBusy = false
		r.cond.Broadcast()
		r.mu.Unlock()
	}()

	for {
		r.mu.Lock()
		r.flushAgain = false
		if len(r.buf) == 0 || r.take == nil {
			r.mu.Unlock()
			return nil
		}
		frames := r.buf
		r.buf = nil
		chunk := r.nextChunk
		takeID := r.take.ID
		r.mu.Unlock()

		if _, err := r.store.AppendFrames(ctx, takeID, chunk, frames); err != nil {
			r.mu.Lock()
			r.buf = append(frames, r.buf...)
			r.mu.Unlock()
			return err
		}

		r.mu.Lock()
		r.nextChunk++
		more := r.flushAgain || len(r.buf) > 0
		r.mu.Unlock()
		if !more {
			return nil
		}
	}
}

// StopRecording transitions to stopping, drains the buffer completely, asks
// the port to finalize the take, resets to idle and returns the finalized
// take. Calling it while not recording is a no-op returning nil. A
// persistence error (including one from an earlier chunk-boundary flush)
// propagates with the buffer left intact, so the caller may retry Stop.
func (r *Recorder) StopRecording(ctx context.Context) (*take.Take, error) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return nil, nil
	}
	r.state = StateStopping
	takeID := r.take.ID
	r.mu.Unlock()

	// Drain until the buffer is empty and no flush is in flight or pending.
	for {
		if err := r.Flush(ctx); err != nil {
			r.mu.Lock()
			r.state = StateRecording
			r.mu.Unlock()
			return nil, err
		}

		r.mu.Lock()
		if r.flushBusy {
			r.cond.Wait()
			r.mu.Unlock()
			continue
		}
		if err := r.flushErr; err != nil {
			r.flushErr = nil
			r.state = StateRecording
			r.mu.Unlock()
			return nil, err
		}
		if len(r.buf) == 0 && !r.flushAgain {
			r.mu.Unlock()
			break
		}
		r.mu.Unlock()
	}

	r.mu.Lock()
	firstTs, lastTs := r.firstTs, r.lastTs
	r.mu.Unlock()

	finalized, err := r.store.FinalizeTake(ctx, takeID, firstTs, lastTs)
	if err != nil {
		r.mu.Lock()
		r.state = StateRecording
		r.mu.Unlock()
		return nil, err
	}

	r.mu.Lock()
	r.state = StateIdle
	r.take = nil
	r.buf = nil
	r.firstTs, r.lastTs, r.haveTs = 0, 0, false
	r.frames = 0
	r.nextChunk = 0
	r.mu.Unlock()

	monitoring.Logf("recorder: stopped take %s (%d frames, %d chunks)",
		finalized.ID, finalized.FrameCount, finalized.ChunkCount)
	return finalized, nil
}
