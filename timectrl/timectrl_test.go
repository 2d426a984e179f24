package timectrl

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTimeControllerSetTime(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Second, RealTime)

	newNow := start.Add(42 * time.Second)
	tc.SetTime(newNow)

	if got := tc.Now(); !got.Equal(newNow) {
		t.Fatalf("Now() = %v, want %v", got, newNow)
	}
	if got := tc.Elapsed(); got != 42*time.Second {
		t.Fatalf("Elapsed() = %v, want 42s", got)
	}
}

func TestTimeControllerDefaultInterval(t *testing.T) {
	tc := NewTimeController(time.Time{}, 0, Accelerated)
	if tc.Interval != DefaultFrameInterval {
		t.Fatalf("Interval = %v, want %v", tc.Interval, DefaultFrameInterval)
	}
}

func TestTimeControllerRunAccelerated(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 5*time.Millisecond, Accelerated)

	var frames []time.Duration
	tc.AddListener(func(elapsed time.Duration, now time.Time) {
		frames = append(frames, elapsed)
		if !now.Equal(start.Add(elapsed)) {
			t.Errorf("now = %v, want start+%v", now, elapsed)
		}
	})

	if err := tc.Run(context.Background(), 15*time.Millisecond); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 15 * time.Millisecond}
	if len(frames) != len(want) {
		t.Fatalf("frames = %v, want %v", frames, want)
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Fatalf("frame %d elapsed = %v, want %v", i, frames[i], want[i])
		}
	}
}

func TestTimeControllerStartUpdatesNow(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 5*time.Millisecond, RealTime)

	<-tc.Start(context.Background(), 15*time.Millisecond)

	expected := start.Add(15 * time.Millisecond)
	if got := tc.Now(); !got.Equal(expected) {
		t.Fatalf("Now() = %v, want %v", got, expected)
	}
}

func TestTimeControllerRunStopsOnCancel(t *testing.T) {
	tc := NewTimeController(time.Now(), time.Millisecond, RealTime)
	ctx, cancel := context.WithCancel(context.Background())
	tc.AddListener(func(elapsed time.Duration, _ time.Time) {
		if elapsed >= 3*time.Millisecond {
			cancel()
		}
	})

	if err := tc.Run(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v, want context.Canceled", err)
	}
}
