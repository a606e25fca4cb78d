package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
)

var _ ports.Logger = (*NoopLogger)(nil)

// NoopLogger discards all log output.
type NoopLogger struct{}

func (l *NoopLogger) Info(string, ...any)  {}
func (l *NoopLogger) Warn(string, ...any)  {}
func (l *NoopLogger) Error(string, ...any) {}
func (l *NoopLogger) Debug(string, ...any) {}

var _ ports.Clock = (*FixedClock)(nil)

// FixedClock returns a fixed time and never sleeps. Requested sleeps are recorded.
type FixedClock struct {
	T time.Time

	mu     sync.Mutex
	sleeps []time.Duration
}

func (c *FixedClock) Now() time.Time { return c.T }

func (c *FixedClock) SleepContext(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}

// Sleeps returns the durations passed to SleepContext, in call order.
func (c *FixedClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

var _ ports.RateLimiter = (*StubRateLimiter)(nil)

// StubRateLimiter counts Wait calls and returns Err.
type StubRateLimiter struct {
	Err error

	mu   sync.Mutex
	keys []string
}

func (r *StubRateLimiter) Wait(_ context.Context, key string, _ float64, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return r.Err
}

// Keys returns the keys Wait was called with.
func (r *StubRateLimiter) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

var _ ports.TokenSource = (*StubTokenSource)(nil)

// StubTokenSource returns Errs in order, then Value.
type StubTokenSource struct {
	Value string
	Errs  []error

	mu    sync.Mutex
	calls int
}

func (s *StubTokenSource) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= len(s.Errs) && s.Errs[s.calls-1] != nil {
		return "", s.Errs[s.calls-1]
	}
	return s.Value, nil
}

// Calls returns how many times Token was invoked.
func (s *StubTokenSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var _ ports.RemoteHost = (*StubRemoteHost)(nil)

// StubRemoteHost records commands and log waits.
type StubRemoteHost struct {
	ExecErr error
	WaitErr error

	mu       sync.Mutex
	Commands []string
	Waited   []string
}

func (h *StubRemoteHost) Exec(_ context.Context, command string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Commands = append(h.Commands, command)
	return h.ExecErr
}

func (h *StubRemoteHost) WaitForLog(_ context.Context, process, keyword string, _ time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Waited = append(h.Waited, process+":"+keyword)
	return h.WaitErr
}

var _ ports.Metrics = (*RecordingMetrics)(nil)

// RecordingMetrics counts metric events by name.
type RecordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *RecordingMetrics) inc(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[key]++
}

func (m *RecordingMetrics) RequestAttempt(method string, ok bool) {
	if ok {
		m.inc("attempt_ok:" + method)
		return
	}
	m.inc("attempt_err:" + method)
}
func (m *RecordingMetrics) RequestRetry(method string)     { m.inc("retry:" + method) }
func (m *RecordingMetrics) RequestExhausted(method string) { m.inc("exhausted:" + method) }
func (m *RecordingMetrics) Verdict(kind, part, status string) {
	m.inc("verdict:" + kind + ":" + part + ":" + status)
}
func (m *RecordingMetrics) RunFinished(_ float64, passed bool) {
	if passed {
		m.inc("run:pass")
		return
	}
	m.inc("run:fail")
}

// Count returns the number of events recorded under key.
func (m *RecordingMetrics) Count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

var _ label.Catalogue = (*StubCatalogue)(nil)

// StubCatalogue serves an in-memory catalogue.
type StubCatalogue struct {
	Specs   []label.Specification
	BySpec  map[string][]*label.Sample
	SpecErr error
}

func (c *StubCatalogue) Specifications(context.Context) ([]label.Specification, error) {
	return c.Specs, c.SpecErr
}

func (c *StubCatalogue) Samples(_ context.Context, specName string) ([]*label.Sample, error) {
	samples, ok := c.BySpec[specName]
	if !ok {
		return nil, label.ErrNotFound
	}
	return samples, nil
}
