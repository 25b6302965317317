package ingest

import (
	"context"
	"time"
)

// SleepFunc waits for d or until ctx is done. Injected so tests never wait
// on a real timer.
type SleepFunc func(ctx context.Context, d time.Duration) error

func realSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sequential executes items strictly one at a time, waiting a fixed minimum
// delay after each item before starting the next. This is a deliberate
// politeness mechanism toward the remote service's rate limits; concurrent
// draining is not allowed. Item failures do not halt the remaining items.
type Sequential struct {
	Delay time.Duration
	Sleep SleepFunc
}

func NewSequential(delay time.Duration) *Sequential {
	return &Sequential{Delay: delay, Sleep: realSleep}
}

// Run invokes fn for each index in order. Item i+1 never starts before item
// i has settled and the delay has elapsed. The returned slice holds one
// error slot per item; a context error cuts the run short and fills the
// remaining slots with ctx.Err().
func (s *Sequential) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			for j := i; j < n; j++ {
				errs[j] = err
			}
			return errs
		}
		errs[i] = fn(ctx, i)
		if i < n-1 {
			if err := s.Sleep(ctx, s.Delay); err != nil {
				for j := i + 1; j < n; j++ {
					errs[j] = err
				}
				return errs
			}
		}
	}
	return errs
}
