package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
)

const namespace = "labelcheck"

var _ ports.Metrics = (*Metrics)(nil)

// Metrics holds the Prometheus collectors for transport, verdicts and the
// target server. Each instance owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestAttempts  *prometheus.CounterVec
	RequestRetries   *prometheus.CounterVec
	RequestExhausts  *prometheus.CounterVec
	Verdicts         *prometheus.CounterVec
	TargetRequests   *prometheus.CounterVec
	SpecificationRun *prometheus.HistogramVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RequestAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_attempts_total",
				Help:      "Outgoing HTTP attempts by method and outcome",
			},
			[]string{"method", "ok"},
		),

		RequestRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_retries_total",
				Help:      "Outgoing HTTP retries by method",
			},
			[]string{"method"},
		),

		RequestExhausts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_exhausted_total",
				Help:      "Outgoing HTTP calls that ran out of retries",
			},
			[]string{"method"},
		),

		Verdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verdicts_total",
				Help:      "Label verdicts by asset kind, part and status",
			},
			[]string{"kind", "part", "status"},
		),

		TargetRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "target_requests_total",
				Help:      "Requests received by the target server by kind and status code",
			},
			[]string{"kind", "code"},
		),

		SpecificationRun: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "specification_run_seconds",
				Help:      "Duration of one specification verification",
				Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		m.RequestAttempts,
		m.RequestRetries,
		m.RequestExhausts,
		m.Verdicts,
		m.TargetRequests,
		m.SpecificationRun,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RequestAttempt(method string, ok bool) {
	m.RequestAttempts.WithLabelValues(method, strconv.FormatBool(ok)).Inc()
}

func (m *Metrics) RequestRetry(method string) {
	m.RequestRetries.WithLabelValues(method).Inc()
}

func (m *Metrics) RequestExhausted(method string) {
	m.RequestExhausts.WithLabelValues(method).Inc()
}

func (m *Metrics) Verdict(kind, part, status string) {
	m.Verdicts.WithLabelValues(kind, part, status).Inc()
}

// TargetRequest counts one request served by the target server.
func (m *Metrics) TargetRequest(kind string, code int) {
	m.TargetRequests.WithLabelValues(kind, strconv.Itoa(code)).Inc()
}

// RunFinished records the duration of one specification run.
func (m *Metrics) RunFinished(seconds float64, passed bool) {
	outcome := "fail"
	if passed {
		outcome = "pass"
	}
	m.SpecificationRun.WithLabelValues(outcome).Observe(seconds)
}
