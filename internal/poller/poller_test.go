package poller

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock fires immediately and records how many waits were requested.
type fakeClock struct {
	waits []time.Duration
}

func (f *fakeClock) After(d time.Duration) <-chan time.Time {
	f.waits = append(f.waits, d)
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func TestRunPollsUntilDone(t *testing.T) {
	clock := &fakeClock{}
	p := &Poller{Interval: 10 * time.Second, Clock: clock}

	var attempts []int
	err := p.Run(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		attempts = append(attempts, attempt)
		return attempt == 4, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(attempts) != 4 {
		t.Fatalf("expected 4 attempts, got %d", len(attempts))
	}
	for i, a := range attempts {
		if a != i+1 {
			t.Errorf("attempt %d reported as %d", i+1, a)
		}
	}

	// Three waits between four polls, all at the configured interval.
	if len(clock.waits) != 3 {
		t.Fatalf("expected 3 waits, got %d", len(clock.waits))
	}
	for _, d := range clock.waits {
		if d != 10*time.Second {
			t.Errorf("expected 10s interval, got %v", d)
		}
	}
}

func TestRunStopsOnError(t *testing.T) {
	clock := &fakeClock{}
	p := &Poller{Interval: time.Second, Clock: clock}

	boom := errors.New("provider failed")
	calls := 0
	err := p.Run(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		if attempt == 2 {
			return false, boom
		}
		return false, nil
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// A clock that never fires forces Run to block on the context.
	blocked := &blockingClock{}
	p := &Poller{Interval: time.Second, Clock: blocked}

	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func(ctx context.Context, attempt int) (bool, error) {
			return false, nil
		})
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

type blockingClock struct{}

func (blockingClock) After(d time.Duration) <-chan time.Time {
	return make(chan time.Time) // never fires
}

func TestNewDefaults(t *testing.T) {
	p := New(0)
	if p.Interval != DefaultInterval {
		t.Errorf("expected default interval %v, got %v", DefaultInterval, p.Interval)
	}
	if p.Clock == nil {
		t.Error("expected a clock")
	}
}
