package poller

import (
	"context"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Long-running operation poller
// Providers hand back an operation handle for async jobs (video generation);
// the handle must be queried on an interval until the provider reports
// completion. The clock is injectable so tests can fast-forward simulated
// time instead of sleeping.
// ---------------------------------------------------------------------------

// DefaultInterval is the poll spacing used for video operations.
const DefaultInterval = 10 * time.Second

// Clock abstracts time for the poll loop.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Poller drives a step function on a fixed interval until it reports done.
// No overall timeout is enforced by design; callers surface progress on
// every iteration so a long-running job never looks hung.
type Poller struct {
	Interval time.Duration
	Clock    Clock
}

// New returns a poller with the given interval and the wall clock.
// A non-positive interval falls back to DefaultInterval.
func New(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{Interval: interval, Clock: realClock{}}
}

// Step queries an in-flight operation once. attempt starts at 1 and counts
// the queries made so far, including this one.
type Step func(ctx context.Context, attempt int) (done bool, err error)

// Run calls step immediately, then once per interval, until step reports
// done, returns an error, or the context is cancelled.
func (p *Poller) Run(ctx context.Context, step Step) error {
	clock := p.Clock
	if clock == nil {
		clock = realClock{}
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	for attempt := 1; ; attempt++ {
		done, err := step(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("polling cancelled: %w", ctx.Err())
		case <-clock.After(interval):
		}
	}
}
