package transport_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/transport"
)

func TestClient_Batch_BoundsConcurrencyAndSettlesAll(t *testing.T) {
	var inFlight, peak, calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		if strings.HasSuffix(r.URL.Path, "/fail") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = fmt.Fprint(w, r.URL.Path)
	}))
	defer srv.Close()

	c, clk := newClient(t, srv.URL)

	specs := make([]transport.RequestSpec, 25)
	for i := range specs {
		path := fmt.Sprintf("/data_label_test/%d", i)
		if i%10 == 3 {
			path += "/fail"
		}
		specs[i] = transport.RequestSpec{Method: http.MethodPost, Path: path}
	}

	results := c.Batch(context.Background(), specs, 5, 50*time.Millisecond)

	if len(results) != 25 {
		t.Fatalf("expected 25 results, got %d", len(results))
	}
	if p := peak.Load(); p > 5 {
		t.Errorf("peak in-flight %d exceeds 5", p)
	}
	failed := 0
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d has index %d", i, r.Index)
		}
		if r.Err != nil {
			failed++
			if !strings.HasSuffix(specs[i].Path, "/fail") {
				t.Errorf("unexpected failure at %d: %v", i, r.Err)
			}
			continue
		}
		if string(r.Response.Body) != specs[i].Path {
			t.Errorf("result %d body %q, want %q", i, r.Response.Body, specs[i].Path)
		}
	}
	if failed != 3 {
		t.Errorf("expected 3 failures, got %d", failed)
	}
	// 22 successes plus 3 failing requests with 4 attempts each.
	if calls.Load() != 34 {
		t.Errorf("expected 34 server calls, got %d", calls.Load())
	}

	intervals := 0
	for _, d := range clk.Sleeps() {
		if d == 50*time.Millisecond {
			intervals++
		}
	}
	if intervals != 25 {
		t.Errorf("expected 25 pacing sleeps, got %d", intervals)
	}
}

func TestClient_Batch_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := c.Batch(ctx, make([]transport.RequestSpec, 4), 2, 0)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Err == nil {
			t.Errorf("result %d: expected error on cancelled context", i)
		}
	}
}
