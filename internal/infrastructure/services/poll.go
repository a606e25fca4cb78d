package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
)

// DefaultCadence is the interval between WaitFor checks.
const DefaultCadence = 500 * time.Millisecond

// ErrTimeout is returned by WaitFor when the condition did not hold in time.
var ErrTimeout = fmt.Errorf("wait timed out: %w", context.DeadlineExceeded)

// Poller repeats operations until they report the expected state.
type Poller struct {
	clock   ports.Clock
	logger  ports.Logger
	cadence time.Duration
}

// NewPoller creates a Poller checking every cadence. A non-positive cadence
// uses DefaultCadence.
func NewPoller(clock ports.Clock, logger ports.Logger, cadence time.Duration) *Poller {
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	return &Poller{clock: clock, logger: logger, cadence: cadence}
}

// Poll describes a bounded retry of Op until Until accepts its result.
type Poll[T any] struct {
	Name     string
	Op       func(ctx context.Context) (T, error)
	Until    func(T) bool
	Retries  int
	Interval time.Duration
}

// RetryUntil invokes poll.Op up to Retries+1 times and returns the first
// result accepted by Until. When attempts run out it returns the last result
// with a nil error; callers must check the value. Op errors are returned
// immediately.
func RetryUntil[T any](ctx context.Context, p *Poller, poll Poll[T]) (T, error) {
	var last T
	attempts := max(poll.Retries, 0) + 1
	for i := range attempts {
		if i > 0 {
			if err := p.clock.SleepContext(ctx, poll.Interval); err != nil {
				return last, err
			}
		}
		v, err := poll.Op(ctx)
		if err != nil {
			return v, fmt.Errorf("%s: %w", poll.Name, err)
		}
		last = v
		if poll.Until == nil || poll.Until(v) {
			return v, nil
		}
		p.logger.Debug("condition not met", "poll", poll.Name, "attempt", i+1, "of", attempts)
	}
	p.logger.Warn("retries exhausted, using last result", "poll", poll.Name, "attempts", attempts)
	return last, nil
}

// WaitFor calls check every cadence until it reports true or timeout elapses.
// Check errors are logged and polling continues.
func (p *Poller) WaitFor(ctx context.Context, name string, check func(context.Context) (bool, error), timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		done, err := check(waitCtx)
		switch {
		case err == nil && done:
			return nil
		case err != nil && waitCtx.Err() == nil:
			p.logger.Warn("check failed, polling continues", "wait", name, "error", err)
		}

		if err := p.clock.SleepContext(waitCtx, p.cadence); err != nil || waitCtx.Err() != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%s after %s: %w", name, timeout, ErrTimeout)
			}
			return err
		}
	}
}
