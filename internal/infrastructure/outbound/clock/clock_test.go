package clock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/clock"
)

func TestRealClock_SleepContext_Normal(t *testing.T) {
	clk := clock.New()

	start := time.Now()
	if err := clk.SleepContext(context.Background(), 30*time.Millisecond); err != nil {
		t.Fatalf("SleepContext returned unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("SleepContext returned too early: %v", elapsed)
	}
}

func TestRealClock_SleepContext_Cancelled(t *testing.T) {
	clk := clock.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := clk.SleepContext(ctx, 10*time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRealClock_SleepContext_ZeroDuration(t *testing.T) {
	clk := clock.New()
	if err := clk.SleepContext(context.Background(), 0); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := clk.SleepContext(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled for done context, got %v", err)
	}
}
