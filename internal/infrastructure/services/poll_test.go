package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/labelcheck/internal/infrastructure/services"
	"github.com/sophialabs/labelcheck/internal/testutil"
)

func newPoller() (*services.Poller, *testutil.FixedClock) {
	clk := &testutil.FixedClock{T: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	return services.NewPoller(clk, &testutil.NoopLogger{}, 0), clk
}

func TestRetryUntil_FirstSuccess(t *testing.T) {
	p, clk := newPoller()
	calls := 0

	got, err := services.RetryUntil(context.Background(), p, services.Poll[int]{
		Name:     "count",
		Op:       func(context.Context) (int, error) { calls++; return 8, nil },
		Until:    func(n int) bool { return n == 8 },
		Retries:  3,
		Interval: time.Second,
	})
	if err != nil || got != 8 {
		t.Fatalf("got %d, %v", got, err)
	}
	if calls != 1 || len(clk.Sleeps()) != 0 {
		t.Errorf("expected a single call without sleeping, got calls=%d sleeps=%v", calls, clk.Sleeps())
	}
}

func TestRetryUntil_SucceedsOnThirdAttempt(t *testing.T) {
	p, clk := newPoller()
	values := []int{0, 4, 8, 8}
	calls := 0

	got, err := services.RetryUntil(context.Background(), p, services.Poll[int]{
		Name:     "count",
		Op:       func(context.Context) (int, error) { v := values[calls]; calls++; return v, nil },
		Until:    func(n int) bool { return n == 8 },
		Retries:  5,
		Interval: 2 * time.Second,
	})
	if err != nil || got != 8 || calls != 3 {
		t.Fatalf("got %d after %d calls, err %v", got, calls, err)
	}
	if len(clk.Sleeps()) != 2 || clk.Sleeps()[0] != 2*time.Second {
		t.Errorf("unexpected sleeps %v", clk.Sleeps())
	}
}

func TestRetryUntil_ExhaustionReturnsLastResult(t *testing.T) {
	p, _ := newPoller()
	calls := 0

	got, err := services.RetryUntil(context.Background(), p, services.Poll[[]string]{
		Name: "records",
		Op: func(context.Context) ([]string, error) {
			calls++
			if calls == 3 {
				return []string{"last"}, nil
			}
			return nil, nil
		},
		Until:   func(v []string) bool { return len(v) > 1 },
		Retries: 2,
	})
	if err != nil {
		t.Fatalf("exhaustion must not error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected retries+1 = 3 calls, got %d", calls)
	}
	if len(got) != 1 || got[0] != "last" {
		t.Errorf("expected last result, got %v", got)
	}
}

func TestRetryUntil_OpErrorPropagates(t *testing.T) {
	p, _ := newPoller()
	boom := errors.New("boom")
	calls := 0

	_, err := services.RetryUntil(context.Background(), p, services.Poll[int]{
		Name:    "detail",
		Op:      func(context.Context) (int, error) { calls++; return 0, boom },
		Until:   func(int) bool { return false },
		Retries: 4,
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected immediate boom, got %v after %d calls", err, calls)
	}
}

func TestRetryUntil_Cancelled(t *testing.T) {
	p, _ := newPoller()
	ctx, cancel := context.WithCancel(context.Background())

	_, err := services.RetryUntil(ctx, p, services.Poll[int]{
		Name:    "count",
		Op:      func(context.Context) (int, error) { cancel(); return 0, nil },
		Until:   func(int) bool { return false },
		Retries: 4,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitFor_Succeeds(t *testing.T) {
	p, _ := newPoller()
	calls := 0

	err := p.WaitFor(context.Background(), "init", func(context.Context) (bool, error) {
		calls++
		if calls == 1 {
			return false, errors.New("transient")
		}
		return calls >= 3, nil
	}, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 checks, got %d", calls)
	}
}

func TestWaitFor_Timeout(t *testing.T) {
	p := services.NewPoller(clock.New(), &testutil.NoopLogger{}, 5*time.Millisecond)

	start := time.Now()
	err := p.WaitFor(context.Background(), "init", func(context.Context) (bool, error) {
		return false, nil
	}, 40*time.Millisecond)

	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ErrTimeout should wrap context.DeadlineExceeded")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took too long: %v", elapsed)
	}
}

func TestWaitFor_ParentCancelled(t *testing.T) {
	p := services.NewPoller(clock.New(), &testutil.NoopLogger{}, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	err := p.WaitFor(ctx, "init", func(context.Context) (bool, error) {
		cancel()
		return false, nil
	}, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
