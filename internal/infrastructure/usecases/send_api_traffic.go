package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
	"github.com/sophialabs/labelcheck/internal/infrastructure/services"
)

// DefaultMaxConcurrent bounds in-flight traffic requests.
const DefaultMaxConcurrent = 5

// APITrafficOptions tunes SendAPITrafficUseCase.
type APITrafficOptions struct {
	// Proxy is the host:port of the API proxy endpoint.
	Proxy          string
	CopiesPerLabel int
	MaxConcurrent  int
	// Interval is waited before each request once admitted.
	Interval time.Duration
}

// TrafficReport counts what was sent.
type TrafficReport struct {
	Sent   int
	Failed int
}

// SendAPITrafficUseCase sends the API samples of a specification through
// the API proxy.
type SendAPITrafficUseCase struct {
	sender TrafficSender
	logger ports.Logger
	opts   APITrafficOptions
}

// NewSendAPITrafficUseCase creates a new use case.
func NewSendAPITrafficUseCase(sender TrafficSender, logger ports.Logger, opts APITrafficOptions) *SendAPITrafficUseCase {
	if opts.CopiesPerLabel < 1 {
		opts.CopiesPerLabel = services.DefaultCopiesPerLabel
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	return &SendAPITrafficUseCase{sender: sender, logger: logger, opts: opts}
}

// Execute sends CopiesPerLabel requests per sample. Individual request
// failures are logged and counted; they do not fail the call.
func (uc *SendAPITrafficUseCase) Execute(ctx context.Context, samples []*label.Sample) (TrafficReport, error) {
	var report TrafficReport
	if len(samples) == 0 {
		return report, nil
	}
	specs, err := services.BuildAPITraffic(samples, uc.opts.CopiesPerLabel)
	if err != nil {
		return report, err
	}
	if err := uc.sender.SetBaseURL(ProxyURL(uc.opts.Proxy)); err != nil {
		return report, fmt.Errorf("api proxy: %w", err)
	}

	uc.logger.Info("sending api traffic", "labels", len(samples), "requests", len(specs))
	for _, r := range uc.sender.Batch(ctx, specs, uc.opts.MaxConcurrent, uc.opts.Interval) {
		report.Sent++
		if r.Err != nil {
			report.Failed++
			uc.logger.Warn("traffic request failed", "path", specs[r.Index].Path, "error", r.Err)
		}
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	uc.logger.Info("api traffic sent", "sent", report.Sent, "failed", report.Failed)
	return report, nil
}
