package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/metrics"
)

func TestMetrics_Counters(t *testing.T) {
	m := metrics.New()

	m.RequestAttempt("GET", true)
	m.RequestAttempt("GET", false)
	m.RequestAttempt("GET", false)
	m.RequestRetry("POST")
	m.RequestExhausted("POST")
	m.Verdict("api", "request", "PASS")
	m.TargetRequest("api", 200)

	if got := testutil.ToFloat64(m.RequestAttempts.WithLabelValues("GET", "false")); got != 2 {
		t.Errorf("failed attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RequestRetries.WithLabelValues("POST")); got != 1 {
		t.Errorf("retries = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Verdicts.WithLabelValues("api", "request", "PASS")); got != 1 {
		t.Errorf("verdicts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TargetRequests.WithLabelValues("api", "200")); got != 1 {
		t.Errorf("target requests = %v, want 1", got)
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := metrics.New()
	b := metrics.New()
	a.RequestRetry("GET")

	if got := testutil.ToFloat64(b.RequestRetries.WithLabelValues("GET")); got != 0 {
		t.Errorf("second instance saw %v retries", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.Verdict("file", "file", "FAILED")
	m.RunFinished(42, false)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`labelcheck_verdicts_total{kind="file",part="file",status="FAILED"} 1`,
		`labelcheck_specification_run_seconds_count{outcome="fail"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
