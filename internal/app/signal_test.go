package app

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestNotifyContext_CancelledBySignal(t *testing.T) {
	ctx, stop := notifyContext(context.Background())
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("kill: %v", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by SIGINT")
	}
}
