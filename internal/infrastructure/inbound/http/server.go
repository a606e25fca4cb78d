package http

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/domain/trace"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/transport"
	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
	"github.com/sophialabs/labelcheck/internal/infrastructure/usecases"
)

const maxBodySize = 32 << 20 // 32 MB

// mirroredHeaderPrefix selects request headers copied onto API responses so
// header-located labels appear in the response part too.
const mirroredHeaderPrefix = "X-"

// TargetMetrics counts served requests.
type TargetMetrics interface {
	TargetRequest(kind string, code int)
}

// Server is the target ("proxy app") server the backend observes.
type Server struct {
	router    *chi.Mux
	trafficUC *usecases.HandleTrafficUseCase
	traceBuf  *trace.RingBuffer
	catalogue label.Catalogue
	metrics   TargetMetrics
	logger    ports.Logger
}

// Options holds the optional collaborators of the server.
type Options struct {
	// Catalogue enables GET /__admin/specifications.
	Catalogue label.Catalogue
	Metrics   TargetMetrics
	// MetricsHandler is mounted on GET /metrics.
	MetricsHandler http.Handler
}

// NewServer creates a new Server.
func NewServer(
	trafficUC *usecases.HandleTrafficUseCase,
	traceBuf *trace.RingBuffer,
	logger ports.Logger,
	opts Options,
) *Server {
	s := &Server{
		trafficUC: trafficUC,
		traceBuf:  traceBuf,
		catalogue: opts.Catalogue,
		metrics:   opts.Metrics,
		logger:    logger,
	}
	s.router = s.buildRouter(opts.MetricsHandler)
	return s
}

func (s *Server) buildRouter(metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	// Admin routes.
	r.Route("/__admin", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/trace", s.handleGetTrace)
		r.Get("/specifications", s.handleListSpecifications)
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	// Synthetic traffic routes.
	r.Post(usecases.UploadPath, s.handleMultipartUpload)
	r.Put(usecases.UploadPath+"/{filename}", s.handleRawUpload)
	r.Post("/data_label_test/{labelID}", s.handleLabelTraffic)
	r.Put("/data_label_test/{labelID}", s.handleLabelTraffic)

	r.NotFound(s.notFoundHandler)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("request received (no route)", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	writeJSON(w, map[string]any{
		"error":   "no_route",
		"method":  r.Method,
		"path":    r.URL.Path,
		"message": "Only label traffic and uploads are served",
	})
}

func (s *Server) handleLabelTraffic(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.fail(w, trace.KindAPI, http.StatusBadRequest, "failed to read request body")
		return
	}

	// Canonicalize header keys for consistent lookups.
	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[http.CanonicalHeaderKey(k)] = r.Header.Get(k)
	}

	result := s.trafficUC.Execute(r.Context(), usecases.TrafficRequest{
		Kind:    trace.KindAPI,
		Method:  r.Method,
		Path:    r.URL.Path,
		LabelID: chi.URLParam(r, "labelID"),
		Headers: headers,
		Query:   extractQueryParams(r),
		Body:    body,
	})

	if result.Status == http.StatusOK {
		for k, v := range headers {
			if strings.HasPrefix(k, mirroredHeaderPrefix) {
				w.Header().Set(k, v)
			}
		}
	}
	s.write(w, trace.KindAPI, result)
}

func (s *Server) handleMultipartUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	file, header, err := r.FormFile(transport.UploadField)
	if err != nil {
		s.fail(w, trace.KindUpload, http.StatusBadRequest, "missing multipart field "+transport.UploadField)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, trace.KindUpload, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	s.upload(w, r, filepath.Base(header.Filename), data)
}

func (s *Server) handleRawUpload(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.fail(w, trace.KindUpload, http.StatusBadRequest, "failed to read request body")
		return
	}
	s.upload(w, r, chi.URLParam(r, "filename"), data)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request, name string, data []byte) {
	result := s.trafficUC.Execute(r.Context(), usecases.TrafficRequest{
		Kind:     trace.KindUpload,
		Method:   r.Method,
		Path:     r.URL.Path,
		FileName: name,
		Body:     data,
	})
	s.write(w, trace.KindUpload, result)
}

func (s *Server) write(w http.ResponseWriter, kind trace.Kind, result usecases.TrafficResult) {
	w.Header().Set("Content-Type", result.ContentType)
	w.WriteHeader(result.Status)
	if _, err := w.Write(result.Body); err != nil {
		s.logger.Debug("failed to write response body", "error", err)
	}
	s.count(kind, result.Status)
}

func (s *Server) fail(w http.ResponseWriter, kind trace.Kind, status int, msg string) {
	http.Error(w, msg, status)
	s.count(kind, status)
}

func (s *Server) count(kind trace.Kind, status int) {
	if s.metrics != nil {
		s.metrics.TargetRequest(string(kind), status)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"status":   "ok",
		"received": s.traceBuf.Total(),
	})
}

func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	n := 10
	limit := r.URL.Query().Get("limit")
	if limit == "" {
		limit = r.URL.Query().Get("last")
	}
	if limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil && parsed > 0 {
			n = parsed
		}
	}

	entries := s.traceBuf.Last(n)
	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := entries[:0:0]
		for _, e := range entries {
			if string(e.Kind) == kind {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, entries)
}

func (s *Server) handleListSpecifications(w http.ResponseWriter, r *http.Request) {
	if s.catalogue == nil {
		http.Error(w, "catalogue not configured", http.StatusNotFound)
		return
	}
	specs, err := s.catalogue.Specifications(r.Context())
	if err != nil {
		s.logger.Error("failed to list specifications", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]string{
			"error":   "catalogue_unavailable",
			"message": "catalogue could not be read, check server logs",
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, specs)
}

func extractQueryParams(r *http.Request) map[string]string {
	params := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

func writeJSON(w http.ResponseWriter, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
