package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/transport"
	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
)

// UploadPath is the target server route files are uploaded to.
const UploadPath = "/api/upload"

// FileTrafficOptions tunes SendFileTrafficUseCase.
type FileTrafficOptions struct {
	// Proxy is the host:port of the file proxy endpoint.
	Proxy         string
	UploadRetries int
	// UploadInterval is waited between attempts for one file.
	UploadInterval time.Duration
}

// SendFileTrafficUseCase uploads the generated test files of a specification
// through the file proxy.
type SendFileTrafficUseCase struct {
	sender TrafficSender
	files  TestFileStore
	logger ports.Logger
	opts   FileTrafficOptions
}

// NewSendFileTrafficUseCase creates a new use case.
func NewSendFileTrafficUseCase(sender TrafficSender, files TestFileStore, logger ports.Logger, opts FileTrafficOptions) *SendFileTrafficUseCase {
	return &SendFileTrafficUseCase{sender: sender, files: files, logger: logger, opts: opts}
}

// Execute uploads every file of the specification folder. Nothing is sent
// when no sample applies to files.
func (uc *SendFileTrafficUseCase) Execute(ctx context.Context, spec label.Specification, samples []*label.Sample) (transport.UploadReport, error) {
	if len(samples) == 0 {
		return transport.UploadReport{}, nil
	}
	if err := uc.sender.SetBaseURL(ProxyURL(uc.opts.Proxy)); err != nil {
		return transport.UploadReport{}, fmt.Errorf("file proxy: %w", err)
	}

	folder := uc.files.Folder(spec)
	uc.logger.Info("uploading test files", "folder", folder, "labels", len(samples))
	report, err := uc.sender.UploadFiles(ctx, transport.UploadBatch{
		Path:       UploadPath,
		Folder:     folder,
		Multipart:  true,
		MaxRetries: uc.opts.UploadRetries,
		Interval:   uc.opts.UploadInterval,
	})
	if err != nil {
		return report, fmt.Errorf("upload test files: %w", err)
	}
	for _, f := range report.Failed {
		uc.logger.Warn("upload failed", "file", f.File, "error", f.Err)
	}
	uc.logger.Info("test files uploaded", "uploaded", len(report.Uploaded), "failed", len(report.Failed))
	return report, nil
}
