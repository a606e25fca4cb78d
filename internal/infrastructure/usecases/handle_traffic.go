package usecases

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sophialabs/labelcheck/internal/domain/trace"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/template"
	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
)

// TrafficRequest is one request received by the target server.
type TrafficRequest struct {
	Kind     trace.Kind
	Method   string
	Path     string
	LabelID  string
	FileName string
	Headers  map[string]string
	Query    map[string]string
	Body     []byte
}

// TrafficResult is the response to write back.
type TrafficResult struct {
	Status      int
	ContentType string
	Body        []byte
	TraceEntry  trace.Entry
}

// Latency delays every response by Fixed plus a random share of Jitter.
type Latency struct {
	Fixed  time.Duration
	Jitter time.Duration
}

// HandleTrafficUseCase answers the synthetic traffic the backend mirrors:
// API requests get a rendered response so labels show up in the response
// part, uploads get an acknowledgement.
type HandleTrafficUseCase struct {
	renderer template.Renderer
	clock    ports.Clock
	logger   ports.Logger
	traceBuf *trace.RingBuffer
	latency  Latency
}

// NewHandleTrafficUseCase creates a new use case.
func NewHandleTrafficUseCase(
	renderer template.Renderer,
	clock ports.Clock,
	logger ports.Logger,
	traceBuf *trace.RingBuffer,
	latency Latency,
) *HandleTrafficUseCase {
	return &HandleTrafficUseCase{
		renderer: renderer,
		clock:    clock,
		logger:   logger,
		traceBuf: traceBuf,
		latency:  latency,
	}
}

// Execute records the request in the trace buffer and builds the response.
func (uc *HandleTrafficUseCase) Execute(ctx context.Context, req TrafficRequest) TrafficResult {
	now := uc.clock.Now()
	entry := trace.Entry{
		ID:        uuid.NewString(),
		Timestamp: now,
		Kind:      req.Kind,
		Method:    req.Method,
		Path:      req.Path,
		LabelID:   req.LabelID,
		FileName:  req.FileName,
		Bytes:     len(req.Body),
	}
	uc.traceBuf.Add(entry)

	// Latency simulation (respects context cancellation).
	delay := uc.latency.Fixed
	if uc.latency.Jitter > 0 {
		delay += time.Duration(rand.Int64N(int64(uc.latency.Jitter)))
	}
	if delay > 0 {
		if err := uc.clock.SleepContext(ctx, delay); err != nil {
			uc.logger.Debug("latency sleep cancelled", "path", req.Path, "error", err)
		}
	}

	if req.Kind == trace.KindUpload {
		uc.logger.Debug("file received", "file", req.FileName, "bytes", len(req.Body))
		return TrafficResult{
			Status:      http.StatusOK,
			ContentType: "application/json",
			Body:        uploadAck(entry),
			TraceEntry:  entry,
		}
	}

	body, err := uc.renderer.Render(template.RenderContext{
		Method:  req.Method,
		Path:    req.Path,
		LabelID: req.LabelID,
		Headers: req.Headers,
		Query:   req.Query,
		Body:    req.Body,
		Now:     now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		uc.logger.Error("response render failed", "label", req.LabelID, "error", err)
		return TrafficResult{
			Status:      http.StatusInternalServerError,
			ContentType: "text/plain; charset=utf-8",
			Body:        []byte("template render error"),
			TraceEntry:  entry,
		}
	}

	contentType := "text/plain; charset=utf-8"
	if json.Valid(body) {
		contentType = "application/json"
	}
	uc.logger.Debug("label traffic received", "label", req.LabelID, "method", req.Method, "bytes", len(req.Body))
	return TrafficResult{
		Status:      http.StatusOK,
		ContentType: contentType,
		Body:        body,
		TraceEntry:  entry,
	}
}

func uploadAck(e trace.Entry) []byte {
	b, _ := json.Marshal(map[string]any{
		"code":    http.StatusOK,
		"message": "ok",
		"data":    map[string]any{"id": e.ID, "file_name": e.FileName, "size": e.Bytes},
	})
	return b
}
