package usecases_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/backend"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/transport"
	"github.com/sophialabs/labelcheck/internal/infrastructure/services"
	"github.com/sophialabs/labelcheck/internal/testutil"
)

const testProxy = "10.0.0.5:5003"

func testClock() *testutil.FixedClock {
	return &testutil.FixedClock{T: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
}

func newPoller(clk *testutil.FixedClock) *services.Poller {
	return services.NewPoller(clk, &testutil.NoopLogger{}, 0)
}

func newBackend(t *testing.T, fake *testutil.FakeBackend) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	tc, err := transport.New(transport.Options{
		BaseURL: srv.URL,
		Clock:   testClock(),
		Logger:  &testutil.NoopLogger{},
	})
	if err != nil {
		t.Fatalf("transport.New: %v", err)
	}
	return backend.New(tc, &testutil.NoopLogger{})
}

// fakeSender records traffic instead of sending it.
type fakeSender struct {
	FailPaths map[string]bool
	UploadErr error
	Report    transport.UploadReport

	mu       sync.Mutex
	baseURLs []string
	specs    []transport.RequestSpec
	uploads  []transport.UploadBatch
}

func (s *fakeSender) SetBaseURL(raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURLs = append(s.baseURLs, raw)
	return nil
}

func (s *fakeSender) Batch(_ context.Context, specs []transport.RequestSpec, _ int, _ time.Duration) []transport.BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transport.BatchResult, len(specs))
	for i, spec := range specs {
		s.specs = append(s.specs, spec)
		out[i] = transport.BatchResult{Index: i}
		if s.FailPaths[spec.Path] {
			out[i].Err = errors.New("connection reset")
		}
	}
	return out
}

func (s *fakeSender) UploadFiles(_ context.Context, b transport.UploadBatch) (transport.UploadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, b)
	return s.Report, s.UploadErr
}

func phoneSample(id string) *label.Sample {
	return &label.Sample{
		ID:    id,
		Name:  "phone",
		Scope: 0,
		Body: []label.RequestFieldSample{
			{Body: []string{"13800138000"}},
		},
		FileData: []label.FileContentSample{{Value: "13800138000"}, {Value: "13912345678"}},
	}
}

// phoneCall is a recorded call in which phone was detected once in both bodies.
func phoneCall() testutil.RawCall {
	hit := []testutil.RawLabel{{Name: "phone", Count: 1, Contents: []string{"13800138000"}}}
	return testutil.RawCall{
		Request:  map[string][]testutil.RawLabel{"body": hit},
		Response: map[string][]testutil.RawLabel{"body": hit},
	}
}
