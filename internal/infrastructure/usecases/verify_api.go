package usecases

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/domain/verdict"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/backend"
	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
	"github.com/sophialabs/labelcheck/internal/infrastructure/services"
)

// Record lookup defaults.
const (
	DefaultRecordRetries  = 50
	DefaultRecordInterval = 5 * time.Second
	DefaultVerifyWorkers  = 4
)

// VerifyAPIOptions tunes VerifyAPIUseCase.
type VerifyAPIOptions struct {
	// Proxy is the host:port the traffic was sent through.
	Proxy          string
	RecordRetries  int
	RecordInterval time.Duration
	Workers        int
}

// VerifyAPIUseCase fetches the detections recorded for each API sample and
// classifies them.
type VerifyAPIUseCase struct {
	backend    APIAssetBackend
	classifier *verdict.Classifier
	poller     *services.Poller
	logger     ports.Logger
	opts       VerifyAPIOptions
}

// NewVerifyAPIUseCase creates a new use case.
func NewVerifyAPIUseCase(backend APIAssetBackend, classifier *verdict.Classifier, poller *services.Poller, logger ports.Logger, opts VerifyAPIOptions) *VerifyAPIUseCase {
	if opts.RecordRetries < 0 {
		opts.RecordRetries = DefaultRecordRetries
	}
	if opts.Workers < 1 {
		opts.Workers = DefaultVerifyWorkers
	}
	return &VerifyAPIUseCase{
		backend:    backend,
		classifier: classifier,
		poller:     poller,
		logger:     logger,
		opts:       opts,
	}
}

// Execute verifies every sample with bounded parallelism. Results are in
// sample order. A label whose asset or detail cannot be fetched is reported
// unresolved; only cancellation aborts.
func (uc *VerifyAPIUseCase) Execute(ctx context.Context, samples []*label.Sample) ([]verdict.ComparisonResult, error) {
	results := make([]verdict.ComparisonResult, len(samples))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(uc.opts.Workers)
	for i, s := range samples {
		p.Go(func(ctx context.Context) error {
			r, err := uc.verify(ctx, s)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (uc *VerifyAPIUseCase) verify(ctx context.Context, s *label.Sample) (verdict.ComparisonResult, error) {
	api := services.AssetAPI(uc.opts.Proxy, s.ID)

	rec, err := services.RetryUntil(ctx, uc.poller, services.Poll[*backend.APIAssetRecord]{
		Name: "api asset " + api,
		Op: func(ctx context.Context) (*backend.APIAssetRecord, error) {
			return uc.backend.APIAssetRecord(ctx, api)
		},
		Until:    func(r *backend.APIAssetRecord) bool { return r != nil },
		Retries:  uc.opts.RecordRetries,
		Interval: uc.opts.RecordInterval,
	})
	if err != nil {
		return uc.unresolved(ctx, s, err)
	}
	if rec == nil {
		uc.logger.Warn("no api asset recorded", "label", s.Name, "api", api)
		return uc.classifier.Unresolved(s, "no asset recorded for "+api), nil
	}

	payload, err := uc.backend.APIAssetDetail(ctx, rec.ID)
	if err != nil {
		return uc.unresolved(ctx, s, err)
	}

	r := uc.classifier.Classify(s, payload)
	uc.logger.Debug("api label classified", "label", s.Name, "request", r.Request.Status, "response", r.Response.Status)
	return r, nil
}

func (uc *VerifyAPIUseCase) unresolved(ctx context.Context, s *label.Sample, err error) (verdict.ComparisonResult, error) {
	if ctx.Err() != nil {
		return verdict.ComparisonResult{}, ctx.Err()
	}
	uc.logger.Error("api label lookup failed", "label", s.Name, "error", err)
	return uc.classifier.Unresolved(s, err.Error()), nil
}
