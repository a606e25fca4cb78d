package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/auth"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/logging"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/transport"
	"github.com/sophialabs/labelcheck/internal/infrastructure/usecases"
	"github.com/sophialabs/labelcheck/internal/infrastructure/wiring"
)

// App is the thin lifecycle manager that delegates dependency construction to wiring.Container.
type App struct {
	cfg        Config
	container  *wiring.Container
	logFile    io.Closer
	httpServer *http.Server
}

// New constructs the application by creating a logger, wiring infrastructure
// components via the container, and setting up the target HTTP server.
func New(cfg Config) (*App, error) {
	handlerOpts := logging.HandlerOptions{
		Level:   logging.ParseLevel(cfg.Log.Level),
		Console: true,
		NoColor: cfg.Log.NoColor,
	}
	var logFile *os.File
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		handlerOpts.File = f
	}
	logger := logging.New(slog.New(logging.NewHandler(os.Stdout, handlerOpts)))

	lc := cfg.Labelcheck
	container, err := wiring.New(wiring.Params{
		CatalogueDir:   lc.CatalogueDir,
		TestDataDir:    lc.TestDataDir,
		BackendURL:     cfg.BackendURL(),
		VerifyTLS:      cfg.SC.VerifyTLS,
		Token:          auth.StaticToken(cfg.SC.Token),
		LoginAttempts:  lc.LoginAttempts,
		RequestTimeout: lc.RequestTimeout,
		RequestRetries: transport.Retries(lc.RequestRetries),
		RateLimit:      lc.RateLimit,
		RateBurst:      lc.RateBurst,
		RateLimiterTTL: lc.RateLimiterTTL,
		PollCadence:    lc.PollCadence,
		Choose: usecases.ChooseOptions{
			CleanCommand:   lc.CleanCommand,
			InitTimeout:    lc.InitTimeout,
			LogWaitTimeout: lc.LogWaitTimeout,
		},
		APITraffic: usecases.APITrafficOptions{
			Proxy:          cfg.APIProxy(),
			CopiesPerLabel: lc.CopiesPerLabel,
			MaxConcurrent:  lc.MaxConcurrent,
			Interval:       lc.RequestInterval,
		},
		VerifyAPI: usecases.VerifyAPIOptions{
			Proxy:          cfg.APIProxy(),
			RecordRetries:  lc.RecordRetries,
			RecordInterval: lc.RecordInterval,
			Workers:        lc.VerifyWorkers,
		},
		FileTraffic: usecases.FileTrafficOptions{
			Proxy:          cfg.FileProxy(),
			UploadRetries:  lc.UploadRetries,
			UploadInterval: lc.UploadInterval,
		},
		VerifyFile: usecases.VerifyFileOptions{
			FilesPerLabel:  lc.FilesPerLabel,
			SettleDelay:    lc.SettleDelay,
			RecordRetries:  lc.RecordRetries,
			RecordInterval: lc.RecordInterval,
		},
		Gate:                    lc.Gate,
		LegacyUnmatchedFallback: lc.LegacyUnmatchedFallback,
		TraceSize:               cfg.Serve.TraceSize,
		TemplateEngine:          cfg.Serve.TemplateEngine,
		ResponseTemplate:        cfg.Serve.ResponseTemplate,
		Latency: usecases.Latency{
			Fixed:  cfg.Serve.LatencyFixed,
			Jitter: cfg.Serve.LatencyJitter,
		},
		Logger: logger,
	})
	if err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, fmt.Errorf("failed to wire infrastructure: %w", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Serve.Port),
		Handler:      container.Server(),
		ReadTimeout:  cfg.Serve.ReadTimeout,
		WriteTimeout: cfg.Serve.WriteTimeout,
		IdleTimeout:  cfg.Serve.IdleTimeout,
	}

	a := &App{
		cfg:        cfg,
		container:  container,
		httpServer: httpServer,
	}
	if logFile != nil {
		a.logFile = logFile
	}
	return a, nil
}

// Close releases the container and the log file.
func (a *App) Close() {
	a.container.Close()
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// Check validates the configuration, logs in and runs the configured
// specifications once, aborting on SIGINT or SIGTERM. The result reports gate
// failures; the error reports runs that could not complete.
func (a *App) Check(ctx context.Context) (usecases.RunAllResult, error) {
	ctx, stop := notifyContext(ctx)
	defer stop()

	if err := a.cfg.Validate(); err != nil {
		return usecases.RunAllResult{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := a.container.Login(ctx); err != nil {
		return usecases.RunAllResult{}, err
	}

	if a.cfg.Metrics.Addr != "" {
		stop := a.serveMetrics()
		defer stop()
	}
	return a.container.RunAllUseCase().Execute(ctx, a.cfg.Labelcheck.Specifications)
}

// serveMetrics exposes the metrics endpoint while checks run.
func (a *App) serveMetrics() func() {
	logger := a.container.Logger()
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.container.Metrics().Handler())
	srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadTimeout: a.cfg.Serve.ReadTimeout}

	go func() {
		logger.Info("serving metrics", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Serve.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// Watch runs the checks, then runs them again each time the catalogue
// changes, until ctx is cancelled or SIGINT/SIGTERM arrives. report receives
// every completed round.
func (a *App) Watch(ctx context.Context, report func(usecases.RunAllResult, error)) error {
	logger := a.container.Logger()

	ctx, stop := notifyContext(ctx)
	defer stop()

	trigger := make(chan struct{}, 1)
	watcher, err := filesystem.NewWatcher(a.cfg.Labelcheck.CatalogueDir, a.cfg.Labelcheck.WatchDebounce, logger, func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch catalogue: %w", err)
	}
	watcher.Start()
	defer watcher.Stop()
	logger.Info("catalogue watcher started", "root", a.cfg.Labelcheck.CatalogueDir)

	for {
		result, err := a.Check(ctx)
		if ctx.Err() != nil {
			return nil
		}
		report(result, err)

		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			logger.Info("catalogue changed, re-running checks")
		}
	}
}

// Serve runs the target server until ctx is cancelled or SIGINT/SIGTERM
// arrives, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	logger := a.container.Logger()

	ctx, stop := notifyContext(ctx)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting target server", "addr", a.httpServer.Addr, "catalogue", a.cfg.Labelcheck.CatalogueDir)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Serve.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// notifyContext derives a context cancelled on SIGINT or SIGTERM.
func notifyContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
