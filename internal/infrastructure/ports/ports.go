package ports

import (
	"context"
	"time"
)

// Clock provides the current time and cancellable sleeps (for testing).
type Clock interface {
	Now() time.Time
	// SleepContext blocks for d or until ctx is cancelled. Returns ctx.Err() if cancelled.
	SleepContext(ctx context.Context, d time.Duration) error
}

// Logger provides structured logging.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// RateLimiter paces outgoing calls.
type RateLimiter interface {
	// Wait blocks until a call identified by key may proceed under the given
	// rate (tokens per second) and burst, or ctx is done.
	Wait(ctx context.Context, key string, rate float64, burst int) error
}

// TokenSource yields the bearer token sent with backend calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// RemoteHost runs commands on the host running the system under test and
// watches its process logs.
type RemoteHost interface {
	Exec(ctx context.Context, command string) error
	// WaitForLog blocks until process logs a line containing keyword, or timeout elapses.
	WaitForLog(ctx context.Context, process, keyword string, timeout time.Duration) error
}

// Metrics records transport and verdict counters.
type Metrics interface {
	RequestAttempt(method string, ok bool)
	RequestRetry(method string)
	RequestExhausted(method string)
	Verdict(kind, part, status string)
	// RunFinished records the duration of one specification run.
	RunFinished(seconds float64, passed bool)
}
