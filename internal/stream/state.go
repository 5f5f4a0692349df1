package stream

import "sync"

// CaptureSnapshot is an immutable view of the capture state.
type CaptureSnapshot struct {
	Running     bool
	FrameCount  int
	LastFrameTs int64
	TakeID      string
}

// CaptureState is the single process-wide mutable capture state, owned by
// the pipeline driver and passed by reference into stages. Changes are
// published to subscribers explicitly; there is no implicit reactivity.
type CaptureState struct {
	mu   sync.Mutex
	snap CaptureSnapshot
	subs map[int]func(CaptureSnapshot)
	next int
}

// NewCaptureState creates an idle capture state.
func NewCaptureState() *CaptureState {
	return &CaptureState{subs: make(map[int]func(CaptureSnapshot))}
}

// Snapshot returns the current state.
func (c *CaptureState) Snapshot() CaptureSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Subscribe registers an observer called after every state change, and
// returns its unsubscribe function. Observers run on the mutating caller's
// goroutine and should be quick.
func (c *CaptureState) Subscribe(fn func(CaptureSnapshot)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Update applies fn to the state under the lock and notifies subscribers
// with the resulting snapshot.
func (c *CaptureState) Update(fn func(*CaptureSnapshot)) {
	c.mu.Lock()
	fn(&c.snap)
	snap := c.snap
	fns := make([]func(CaptureSnapshot), 0, len(c.subs))
	for _, s := range c.subs {
		fns = append(fns, s)
	}
	c.mu.Unlock()

	for _, s := range fns {
		s(snap)
	}
}
