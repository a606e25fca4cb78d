package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/sophialabs/labelcheck/internal/domain/detection"
	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/backend"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/transport"
	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
)

// RulesBackend drives rule initialization on the backend.
type RulesBackend interface {
	InitialRules(ctx context.Context, specificationID int) error
	InitFinished(ctx context.Context) (bool, error)
	SetAutoMerge(ctx context.Context, turnOn bool) error
}

// APIAssetBackend looks up API assets and their latest detections.
type APIAssetBackend interface {
	APIAssetRecord(ctx context.Context, api string) (*backend.APIAssetRecord, error)
	APIAssetDetail(ctx context.Context, assetID int) (*detection.Payload, error)
}

// FileAssetBackend looks up file assets and their detection counts.
type FileAssetBackend interface {
	FileAssetCount(ctx context.Context) (int, error)
	FileAssetRecord(ctx context.Context, name, md5 string) (*backend.FileAssetRecord, error)
	FileLabelCounts(ctx context.Context, fileID int) (map[string]int, error)
}

// Backend is everything a specification run needs from the backend.
type Backend interface {
	RulesBackend
	APIAssetBackend
	FileAssetBackend
}

// TrafficSender sends synthetic traffic through a proxy endpoint.
// *transport.Client satisfies it.
type TrafficSender interface {
	SetBaseURL(raw string) error
	Batch(ctx context.Context, specs []transport.RequestSpec, maxConcurrent int, interval time.Duration) []transport.BatchResult
	UploadFiles(ctx context.Context, batch transport.UploadBatch) (transport.UploadReport, error)
}

var (
	_ Backend       = (*backend.Client)(nil)
	_ TrafficSender = (*transport.Client)(nil)
)

// TestFileStore locates the generated test files of a specification.
// *filesystem.TestData satisfies it.
type TestFileStore interface {
	Folder(spec label.Specification) string
	Files(spec label.Specification, labelName string) ([]string, error)
	Digest(path string) (string, error)
}

var _ TestFileStore = (*filesystem.TestData)(nil)

// ProxyURL turns a host:port proxy address into a base URL. Addresses that
// already carry a scheme are returned unchanged.
func ProxyURL(proxy string) string {
	if strings.Contains(proxy, "://") {
		return proxy
	}
	return "http://" + proxy
}

// scopedLogger prefixes every entry with fixed attributes.
type scopedLogger struct {
	base  ports.Logger
	attrs []any
}

func withAttrs(l ports.Logger, attrs ...any) ports.Logger {
	if w, ok := l.(interface{ With(...any) ports.Logger }); ok {
		return w.With(attrs...)
	}
	return &scopedLogger{base: l, attrs: attrs}
}

func (l *scopedLogger) args(args []any) []any {
	return append(append(make([]any, 0, len(l.attrs)+len(args)), l.attrs...), args...)
}

func (l *scopedLogger) Info(msg string, args ...any)  { l.base.Info(msg, l.args(args)...) }
func (l *scopedLogger) Warn(msg string, args ...any)  { l.base.Warn(msg, l.args(args)...) }
func (l *scopedLogger) Error(msg string, args ...any) { l.base.Error(msg, l.args(args)...) }
func (l *scopedLogger) Debug(msg string, args ...any) { l.base.Debug(msg, l.args(args)...) }
