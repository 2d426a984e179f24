package timectrl

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameInterval is one frame at 60 frames per second.
const DefaultFrameInterval = time.Second / 60

// Clock gives frame-driven components access to simulation time without
// depending on the concrete controller.
type Clock interface {
	// Now returns the current simulated instant.
	Now() time.Time
	// Elapsed returns the time since the clock started.
	Elapsed() time.Duration
}

// Mode describes how the TimeController advances time.
type Mode int

const (
	// RealTime waits one frame interval of wall-clock time per frame.
	RealTime Mode = iota
	// Accelerated steps by the frame interval as fast as listeners allow.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "realtime"
}

// Listener is invoked once per frame with the elapsed time since start and
// the simulated instant.
type Listener func(elapsed time.Duration, now time.Time)

// TimeController drives the frame clock and notifies registered listeners.
// Listeners run on the controller's goroutine, one frame at a time.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Interval  time.Duration
	Mode      Mode

	elapsed time.Duration

	listeners []Listener
}

// NewTimeController constructs a controller. A non-positive interval
// selects DefaultFrameInterval.
func NewTimeController(start time.Time, interval time.Duration, mode Mode) *TimeController {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &TimeController{
		StartTime: start,
		Interval:  interval,
		Mode:      mode,
	}
}

// Now returns the current simulated instant. Implements Clock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.StartTime.Add(tc.elapsed)
}

// Elapsed returns the time since start. Implements Clock.
func (tc *TimeController) Elapsed() time.Duration {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.elapsed
}

// SetTime jumps the clock to t. Frames continue from there.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	tc.elapsed = t.Sub(tc.StartTime)
	tc.mu.Unlock()
}

// AddListener registers a callback invoked on every frame. Register
// listeners before Run.
func (tc *TimeController) AddListener(fn Listener) {
	tc.listeners = append(tc.listeners, fn)
}

// Run ticks until ctx is cancelled or, when duration is positive, until
// that much time has elapsed. It returns ctx.Err() on cancellation and nil
// once duration is reached.
func (tc *TimeController) Run(ctx context.Context, duration time.Duration) error {
	var tick <-chan time.Time
	if tc.Mode == RealTime {
		ticker := time.NewTicker(tc.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var ran time.Duration
	for {
		if duration > 0 && ran >= duration {
			return nil
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		tc.mu.Lock()
		tc.elapsed += tc.Interval
		elapsed := tc.elapsed
		now := tc.StartTime.Add(elapsed)
		tc.mu.Unlock()
		ran += tc.Interval

		for _, fn := range tc.listeners {
			fn(elapsed, now)
		}
	}
}

// Start runs the controller for duration in a separate goroutine. It
// returns a channel that is closed when the controller finishes.
func (tc *TimeController) Start(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tc.Run(ctx, duration)
	}()
	return done
}
