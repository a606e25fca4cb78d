package usecases

import (
	"context"
	"path/filepath"
	"time"

	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/domain/verdict"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/backend"
	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
	"github.com/sophialabs/labelcheck/internal/infrastructure/services"
)

// File verification defaults.
const (
	DefaultFilesPerLabel = 8
	DefaultSettleDelay   = 3 * time.Second
)

// VerifyFileOptions tunes VerifyFileUseCase.
type VerifyFileOptions struct {
	// FilesPerLabel is how many files were generated per label.
	FilesPerLabel  int
	SettleDelay    time.Duration
	RecordRetries  int
	RecordInterval time.Duration
}

// VerifyFileUseCase waits for the uploaded files to be ingested and
// classifies the detection counts of each label's files.
type VerifyFileUseCase struct {
	backend FileAssetBackend
	files   TestFileStore
	poller  *services.Poller
	clock   ports.Clock
	logger  ports.Logger
	opts    VerifyFileOptions
}

// NewVerifyFileUseCase creates a new use case.
func NewVerifyFileUseCase(backend FileAssetBackend, files TestFileStore, poller *services.Poller, clock ports.Clock, logger ports.Logger, opts VerifyFileOptions) *VerifyFileUseCase {
	if opts.FilesPerLabel < 1 {
		opts.FilesPerLabel = DefaultFilesPerLabel
	}
	if opts.RecordRetries < 0 {
		opts.RecordRetries = DefaultRecordRetries
	}
	return &VerifyFileUseCase{
		backend: backend,
		files:   files,
		poller:  poller,
		clock:   clock,
		logger:  logger,
		opts:    opts,
	}
}

// Settle waits until the backend holds one file asset per generated file,
// then waits SettleDelay. A count that never matches is logged, not fatal.
func (uc *VerifyFileUseCase) Settle(ctx context.Context, samples []*label.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	expected := len(samples) * uc.opts.FilesPerLabel
	count, err := services.RetryUntil(ctx, uc.poller, services.Poll[int]{
		Name:     "file asset count",
		Op:       uc.backend.FileAssetCount,
		Until:    func(n int) bool { return n == expected },
		Retries:  uc.opts.RecordRetries,
		Interval: uc.opts.RecordInterval,
	})
	if err != nil {
		return err
	}
	if count != expected {
		uc.logger.Warn("file asset count differs", "expected", expected, "actual", count)
	}
	return uc.clock.SleepContext(ctx, uc.opts.SettleDelay)
}

// Execute returns one result per sample, in sample order. Call Settle first.
func (uc *VerifyFileUseCase) Execute(ctx context.Context, spec label.Specification, samples []*label.Sample) ([]verdict.FileComparisonResult, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	results := make([]verdict.FileComparisonResult, 0, len(samples))
	for _, s := range samples {
		files, err := uc.files.Files(spec, s.Name)
		if err != nil {
			uc.logger.Warn("no test files for label", "label", s.Name, "error", err)
		}
		detections := make([]verdict.FileDetection, 0, len(files))
		for _, path := range files {
			if !verdict.IsTracked(path) {
				continue
			}
			d, err := uc.detect(ctx, path)
			if err != nil {
				return nil, err
			}
			detections = append(detections, d)
		}
		r := verdict.ClassifyFile(s, detections)
		uc.logger.Debug("file label classified", "label", s.Name, "files", len(r.Files), "status", r.Status)
		results = append(results, r)
	}
	return results, nil
}

// detect looks up the counts for one file. Lookup failures mark the file
// missing; only cancellation is returned.
func (uc *VerifyFileUseCase) detect(ctx context.Context, path string) (verdict.FileDetection, error) {
	d := verdict.FileDetection{Path: path}
	name := filepath.Base(path)

	sum, err := uc.files.Digest(path)
	if err != nil {
		uc.logger.Warn("cannot hash test file", "file", path, "error", err)
		d.Missing = true
		return d, nil
	}

	rec, err := services.RetryUntil(ctx, uc.poller, services.Poll[*backend.FileAssetRecord]{
		Name: "file asset " + name,
		Op: func(ctx context.Context) (*backend.FileAssetRecord, error) {
			return uc.backend.FileAssetRecord(ctx, name, sum)
		},
		Until:    func(r *backend.FileAssetRecord) bool { return r != nil },
		Retries:  uc.opts.RecordRetries,
		Interval: uc.opts.RecordInterval,
	})
	if err == nil && rec == nil {
		uc.logger.Warn("no file asset recorded", "file", name, "md5", sum)
		d.Missing = true
		return d, nil
	}
	if err == nil {
		d.Counts, err = uc.backend.FileLabelCounts(ctx, rec.ID)
	}
	if err != nil {
		if ctx.Err() != nil {
			return d, ctx.Err()
		}
		uc.logger.Error("file asset lookup failed", "file", name, "error", err)
		d.Missing = true
	}
	return d, nil
}
