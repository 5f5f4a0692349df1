package stream

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/banshee-data/mocap.report/internal/landmark"
	"github.com/banshee-data/mocap.report/internal/monitoring"
	"github.com/banshee-data/mocap.report/internal/version"
)

// MockLandmarkCount matches the standard 33-point pose topology.
const MockLandmarkCount = 33

// MockSource is a synthetic Source generating a plausible swaying figure
// with controllable jitter, for demos and tests. Frame delivery runs on its
// own goroutine at the configured rate.
type MockSource struct {
	// Jitter is the amplitude of uniform noise added to each coordinate.
	Jitter float64

	// Seed pins the noise generator for deterministic tests (0 seeds from
	// the wall clock).
	Seed int64

	mu        sync.Mutex
	running   bool
	listeners map[int]Listener
	nextID    int
	frameID   uint64
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewMockSource creates a mock source with mild jitter.
func NewMockSource() *MockSource {
	return &MockSource{Jitter: 0.004, listeners: make(map[int]Listener)}
}

// Ping reports the mock as always reachable.
func (s *MockSource) Ping(ctx context.Context) (PingResult, error) {
	return PingResult{OK: true, Version: "mock-" + version.Version}, nil
}

// AddListener registers a frame callback and returns its unsubscribe function.
func (s *MockSource) AddListener(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Start validates the options and begins synthetic frame delivery. Starting
// an already-running source is an error.
func (s *MockSource) Start(ctx context.Context, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("mock source already started")
	}

	fps := opts.TargetFPS
	if fps <= 0 {
		fps = 30
	}
	nth := opts.EmitEveryNthFrame
	if nth <= 0 {
		nth = 1
	}
	seed := s.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(runCtx, fps, nth, rand.New(rand.NewSource(seed)))
	monitoring.Logf("mock source: started at %d fps", fps)
	return nil
}

// Stop halts frame delivery and waits for the generator goroutine to exit.
// Stopping a stopped source is a no-op.
func (s *MockSource) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	return nil
}

func (s *MockSource) run(ctx context.Context, fps, nth int, rng *rand.Rand) {
	defer close(s.done)

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	start := time.Now()
	count := 0
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			count++
			if count%nth != 0 {
				continue
			}
			frame := s.synthesize(now.Sub(start), rng)
			frame.FPSHint = float64(fps)
			s.deliver(frame)
		}
	}
}

func (s *MockSource) deliver(frame landmark.Frame) {
	s.mu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(frame)
	}
}

// synthesize generates a frame of a figure swaying sinusoidally about the
// image centre, with per-coordinate jitter standing in for estimator noise.
func (s *MockSource) synthesize(elapsed time.Duration, rng *rand.Rand) landmark.Frame {
	s.mu.Lock()
	s.frameID++
	id := s.frameID
	s.mu.Unlock()

	t := elapsed.Seconds()
	sway := 0.03 * math.Sin(2*math.Pi*0.5*t)
	bob := 0.01 * math.Sin(2*math.Pi*1.0*t)

	lm := make([]float64, 0, MockLandmarkCount*landmark.Stride)
	for i := 0; i < MockLandmarkCount; i++ {
		// Spread landmarks over a rough body silhouette; exact anatomy is
		// irrelevant to consumers, only stable indices and motion are.
		baseX := 0.5 + 0.12*math.Sin(float64(i)*1.7)
		baseY := 0.2 + 0.6*float64(i)/MockLandmarkCount
		baseZ := 0.05 * math.Cos(float64(i)*0.9)

		jx := s.Jitter * (rng.Float64()*2 - 1)
		jy := s.Jitter * (rng.Float64()*2 - 1)
		jz := s.Jitter * (rng.Float64()*2 - 1)

		lm = append(lm,
			baseX+sway+jx,
			baseY+bob+jy,
			baseZ+jz,
			0.85+0.15*rng.Float64(),
		)
	}

	return landmark.Frame{
		TimestampMs: elapsed.Milliseconds(),
		FrameID:     id,
		Landmarks:   lm,
	}
}
