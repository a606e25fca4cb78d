package wiring

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sophialabs/labelcheck/internal/domain/trace"
	"github.com/sophialabs/labelcheck/internal/domain/verdict"
	inboundhttp "github.com/sophialabs/labelcheck/internal/infrastructure/inbound/http"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/auth"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/backend"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/metrics"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/ratelimit"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/remote"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/template"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/transport"
	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
	"github.com/sophialabs/labelcheck/internal/infrastructure/services"
	"github.com/sophialabs/labelcheck/internal/infrastructure/usecases"
)

// Params holds the subset of configuration needed to construct infrastructure components.
type Params struct {
	CatalogueDir string
	TestDataDir  string

	// BackendURL is the management API base, e.g. https://10.0.0.1.
	BackendURL string
	VerifyTLS  bool
	Token      ports.TokenSource
	// LoginAttempts bounds token acquisition in Login.
	LoginAttempts int
	// Remote runs commands on the backend host; nil disables remote control.
	Remote ports.RemoteHost

	RequestTimeout time.Duration
	// RequestRetries is the retry budget of every request. Nil selects the
	// transport default.
	RequestRetries *int
	RateLimit      float64
	RateBurst      int
	RateLimiterTTL time.Duration
	PollCadence    time.Duration

	Choose      usecases.ChooseOptions
	APITraffic  usecases.APITrafficOptions
	VerifyAPI   usecases.VerifyAPIOptions
	FileTraffic usecases.FileTrafficOptions
	VerifyFile  usecases.VerifyFileOptions

	Gate                    string
	LegacyUnmatchedFallback bool

	TraceSize        int
	TemplateEngine   string
	ResponseTemplate string
	Latency          usecases.Latency

	Logger ports.Logger
	// Clock defaults to the system clock.
	Clock ports.Clock
}

// Container owns the construction and lifecycle of all infrastructure components.
type Container struct {
	logger        ports.Logger
	tokens        ports.TokenSource
	loginAttempts int
	backendHTTP   *transport.Client
	trafficHTTP   *transport.Client
	catalogue     *filesystem.CatalogueRepository
	runSpecUC     *usecases.RunSpecificationUseCase
	runAllUC      *usecases.RunAllUseCase
	server        *inboundhttp.Server
	metrics       *metrics.Metrics
	pacer         *ratelimit.HostPacer
	traceBuf      *trace.RingBuffer
	closeOnce     sync.Once
}

// New constructs all infrastructure components. Fallible operations (catalogue,
// gate, template, transports) run before goroutine-starting operations (pacer)
// to avoid goroutine leaks on early failure.
func New(p Params) (*Container, error) {
	if p.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if _, err := os.Stat(p.CatalogueDir); err != nil {
		return nil, fmt.Errorf("failed to access catalogue directory: %w", err)
	}

	catalogue, err := filesystem.NewCatalogueRepository(p.CatalogueDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalogue repository: %w", err)
	}
	gate, err := services.NewGate(p.Gate)
	if err != nil {
		return nil, err
	}
	renderer, err := template.NewRegistry().Compile(p.TemplateEngine, "response", p.ResponseTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to compile response template: %w", err)
	}

	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	m := metrics.New()

	// Start background goroutine only after the fallible config checks succeed.
	pacer := ratelimit.NewHostPacer(p.RateLimiterTTL)

	backendHTTP, err := transport.New(transport.Options{
		BaseURL:    p.BackendURL,
		VerifyTLS:  p.VerifyTLS,
		Timeout:    p.RequestTimeout,
		MaxRetries: p.RequestRetries,
		Limiter:    pacer,
		Rate:       p.RateLimit,
		Burst:      p.RateBurst,
		Clock:      clk,
		Logger:     p.Logger,
		Metrics:    m,
	})
	if err != nil {
		pacer.Stop()
		return nil, fmt.Errorf("failed to create backend transport: %w", err)
	}
	trafficHTTP, err := transport.New(transport.Options{
		Timeout:    p.RequestTimeout,
		MaxRetries: p.RequestRetries,
		Clock:      clk,
		Logger:     p.Logger,
		Metrics:    m,
	})
	if err != nil {
		pacer.Stop()
		return nil, fmt.Errorf("failed to create traffic transport: %w", err)
	}

	remoteHost := p.Remote
	if remoteHost == nil {
		remoteHost = remote.NewDisabled(p.Logger)
	}
	tokens := p.Token
	if tokens == nil {
		tokens = auth.StaticToken("")
	}

	api := backend.New(backendHTTP, p.Logger)
	testData := filesystem.NewTestData(p.TestDataDir)
	poller := services.NewPoller(clk, p.Logger, p.PollCadence)
	classifier := verdict.NewClassifier(verdict.Options{LegacyUnmatchedFallback: p.LegacyUnmatchedFallback})

	chooseUC := usecases.NewChooseSpecificationUseCase(remoteHost, api, poller, p.Logger, p.Choose)
	sendAPIUC := usecases.NewSendAPITrafficUseCase(trafficHTTP, p.Logger, p.APITraffic)
	verifyAPIUC := usecases.NewVerifyAPIUseCase(api, classifier, poller, p.Logger, p.VerifyAPI)
	sendFileUC := usecases.NewSendFileTrafficUseCase(trafficHTTP, testData, p.Logger, p.FileTraffic)
	verifyFileUC := usecases.NewVerifyFileUseCase(api, testData, poller, clk, p.Logger, p.VerifyFile)

	runSpecUC := usecases.NewRunSpecificationUseCase(
		catalogue, api, chooseUC, sendAPIUC, verifyAPIUC, sendFileUC, verifyFileUC, clk, p.Logger, m,
	)
	runAllUC := usecases.NewRunAllUseCase(catalogue, runSpecUC, gate, p.Logger)

	traceBuf := trace.NewRingBuffer(p.TraceSize)
	trafficUC := usecases.NewHandleTrafficUseCase(renderer, clk, p.Logger, traceBuf, p.Latency)
	server := inboundhttp.NewServer(trafficUC, traceBuf, p.Logger, inboundhttp.Options{
		Catalogue:      catalogue,
		Metrics:        m,
		MetricsHandler: m.Handler(),
	})

	return &Container{
		logger:        p.Logger,
		tokens:        tokens,
		loginAttempts: p.LoginAttempts,
		backendHTTP:   backendHTTP,
		trafficHTTP:   trafficHTTP,
		catalogue:     catalogue,
		runSpecUC:     runSpecUC,
		runAllUC:      runAllUC,
		server:        server,
		metrics:       m,
		pacer:         pacer,
		traceBuf:      traceBuf,
	}, nil
}

// Login acquires a backend token and installs it on the backend transport.
func (c *Container) Login(ctx context.Context) error {
	attempts := c.loginAttempts
	if attempts < 1 {
		attempts = auth.DefaultLoginAttempts
	}
	token, err := auth.LoginWithRetry(ctx, c.tokens, attempts, c.logger)
	if err != nil {
		return err
	}
	c.backendHTTP.SetToken(token)
	return nil
}

// Close releases resources held by the container. It is idempotent.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		c.pacer.Stop()
		c.backendHTTP.Close()
		c.trafficHTTP.Close()
	})
}

// Logger returns the logger passed at construction time.
func (c *Container) Logger() ports.Logger {
	return c.logger
}

// Server returns the target HTTP server.
func (c *Container) Server() *inboundhttp.Server {
	return c.server
}

// Catalogue returns the label catalogue repository.
func (c *Container) Catalogue() *filesystem.CatalogueRepository {
	return c.catalogue
}

// RunSpecificationUseCase returns the single-specification orchestrator.
func (c *Container) RunSpecificationUseCase() *usecases.RunSpecificationUseCase {
	return c.runSpecUC
}

// RunAllUseCase returns the catalogue-wide orchestrator.
func (c *Container) RunAllUseCase() *usecases.RunAllUseCase {
	return c.runAllUC
}

// Metrics returns the Prometheus metrics set.
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// TraceBuf returns the trace ring buffer.
func (c *Container) TraceBuf() *trace.RingBuffer {
	return c.traceBuf
}
