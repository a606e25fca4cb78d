package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
	"github.com/sophialabs/labelcheck/internal/infrastructure/services"
)

// Readiness markers logged by the backend processes.
const (
	DefaultCleanCommand = "cd /opt/apione && ./bin/apione --clean"
	APIOneProcess       = "apione"
	APIOneReady         = `"http server listening at" address=127.0.0.1:29300`
	ATAProcess          = "ata"
	ATAReady            = "connect to nsqd server: 127.0.0.1:7150 completed"
)

// ChooseOptions tunes ChooseSpecificationUseCase.
type ChooseOptions struct {
	CleanCommand   string
	InitTimeout    time.Duration
	LogWaitTimeout time.Duration
}

// ChooseSpecificationUseCase resets the backend and initializes its rules
// for one specification.
type ChooseSpecificationUseCase struct {
	remote  ports.RemoteHost
	backend RulesBackend
	poller  *services.Poller
	logger  ports.Logger
	opts    ChooseOptions
}

// NewChooseSpecificationUseCase creates a new use case.
func NewChooseSpecificationUseCase(remote ports.RemoteHost, backend RulesBackend, poller *services.Poller, logger ports.Logger, opts ChooseOptions) *ChooseSpecificationUseCase {
	if opts.CleanCommand == "" {
		opts.CleanCommand = DefaultCleanCommand
	}
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = 15 * time.Second
	}
	if opts.LogWaitTimeout <= 0 {
		opts.LogWaitTimeout = 180 * time.Second
	}
	return &ChooseSpecificationUseCase{
		remote:  remote,
		backend: backend,
		poller:  poller,
		logger:  logger,
		opts:    opts,
	}
}

// Execute cleans the backend, waits for it to come back, initializes the
// rules of spec and waits until the detection pipeline is connected.
func (uc *ChooseSpecificationUseCase) Execute(ctx context.Context, spec label.Specification) error {
	if err := uc.remote.Exec(ctx, uc.opts.CleanCommand); err != nil {
		return fmt.Errorf("clean backend: %w", err)
	}
	uc.logger.Info("backend cleaned")

	if err := uc.remote.WaitForLog(ctx, APIOneProcess, APIOneReady, uc.opts.LogWaitTimeout); err != nil {
		return fmt.Errorf("wait for %s: %w", APIOneProcess, err)
	}
	uc.logger.Info("backend process ready", "process", APIOneProcess)

	if err := uc.backend.InitialRules(ctx, spec.ID); err != nil {
		return err
	}
	if err := uc.poller.WaitFor(ctx, "rule initialization", uc.backend.InitFinished, uc.opts.InitTimeout); err != nil {
		return err
	}
	uc.logger.Info("rules initialized", "specification", spec.Name, "specification_id", spec.ID)

	if err := uc.remote.WaitForLog(ctx, ATAProcess, ATAReady, uc.opts.LogWaitTimeout); err != nil {
		return fmt.Errorf("wait for %s: %w", ATAProcess, err)
	}
	uc.logger.Info("backend process ready", "process", ATAProcess)
	return nil
}
