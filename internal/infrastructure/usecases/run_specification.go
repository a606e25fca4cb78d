package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sophialabs/labelcheck/internal/domain/detection"
	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/domain/verdict"
	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
)

// Stage is a step of one specification run.
type Stage string

const (
	StageInit          Stage = "INIT"
	StageSpecSelected  Stage = "SPEC_SELECTED"
	StageTrafficSent   Stage = "TRAFFIC_SENT"
	StageSettled       Stage = "SETTLED"
	StageDetailFetched Stage = "DETAIL_FETCHED"
	StageClassified    Stage = "CLASSIFIED"
	StageSummarized    Stage = "SUMMARIZED"
)

// StageError reports the stage a run was in when it failed.
type StageError struct {
	Specification string
	Stage         Stage
	Err           error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("specification %q failed in %s: %v", e.Specification, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// RunSpecificationUseCase verifies label detection for one specification,
// from backend reset to summary.
type RunSpecificationUseCase struct {
	catalogue  label.Catalogue
	rules      RulesBackend
	choose     *ChooseSpecificationUseCase
	sendAPI    *SendAPITrafficUseCase
	verifyAPI  *VerifyAPIUseCase
	sendFile   *SendFileTrafficUseCase
	verifyFile *VerifyFileUseCase
	clock      ports.Clock
	logger     ports.Logger
	metrics    ports.Metrics
	newRunID   func() string
}

// NewRunSpecificationUseCase creates a new use case.
func NewRunSpecificationUseCase(
	catalogue label.Catalogue,
	rules RulesBackend,
	choose *ChooseSpecificationUseCase,
	sendAPI *SendAPITrafficUseCase,
	verifyAPI *VerifyAPIUseCase,
	sendFile *SendFileTrafficUseCase,
	verifyFile *VerifyFileUseCase,
	clock ports.Clock,
	logger ports.Logger,
	metrics ports.Metrics,
) *RunSpecificationUseCase {
	return &RunSpecificationUseCase{
		catalogue:  catalogue,
		rules:      rules,
		choose:     choose,
		sendAPI:    sendAPI,
		verifyAPI:  verifyAPI,
		sendFile:   sendFile,
		verifyFile: verifyFile,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		newRunID:   uuid.NewString,
	}
}

// SetRunIDFunc replaces the run ID generator.
func (uc *RunSpecificationUseCase) SetRunIDFunc(fn func() string) {
	uc.newRunID = fn
}

// Execute runs the verification. FAILED labels never abort the run; setup,
// transport and polling errors do, wrapped in a *StageError.
func (uc *RunSpecificationUseCase) Execute(ctx context.Context, spec label.Specification) (verdict.SpecificationSummary, error) {
	runID := uc.newRunID()
	log := withAttrs(uc.logger, "run_id", runID, "specification", spec.Name)
	start := uc.clock.Now()

	stage := StageInit
	fail := func(err error) (verdict.SpecificationSummary, error) {
		log.Error("specification run failed", "stage", stage, "error", err)
		uc.metrics.RunFinished(uc.clock.Now().Sub(start).Seconds(), false)
		return verdict.SpecificationSummary{}, &StageError{Specification: spec.Name, Stage: stage, Err: err}
	}
	advance := func(next Stage) {
		log.Debug("stage reached", "from", stage, "to", next)
		stage = next
	}

	samples, err := uc.catalogue.Samples(ctx, spec.Name)
	if err != nil {
		return fail(err)
	}
	apiSamples, fileSamples := label.SplitByScope(samples)
	log.Info("specification run started", "labels", len(samples), "api_labels", len(apiSamples), "file_labels", len(fileSamples))

	if err := uc.choose.Execute(ctx, spec); err != nil {
		return fail(err)
	}
	advance(StageSpecSelected)

	if err := uc.rules.SetAutoMerge(ctx, false); err != nil {
		return fail(err)
	}
	if _, err := uc.sendAPI.Execute(ctx, apiSamples); err != nil {
		return fail(err)
	}
	if _, err := uc.sendFile.Execute(ctx, spec, fileSamples); err != nil {
		return fail(err)
	}
	advance(StageTrafficSent)

	if err := uc.verifyFile.Settle(ctx, fileSamples); err != nil {
		return fail(err)
	}
	advance(StageSettled)

	apiResults, err := uc.verifyAPI.Execute(ctx, apiSamples)
	if err != nil {
		return fail(err)
	}
	fileResults, err := uc.verifyFile.Execute(ctx, spec, fileSamples)
	if err != nil {
		return fail(err)
	}
	advance(StageDetailFetched)

	for _, r := range apiResults {
		for _, p := range detection.Parts {
			uc.metrics.Verdict("api", string(p), string(r.Part(p).Status))
		}
	}
	for _, r := range fileResults {
		uc.metrics.Verdict("file", "file", string(r.Status))
	}

	advance(StageClassified)

	summary := verdict.Summarize(runID, spec, len(samples), apiResults, fileResults)
	advance(StageSummarized)

	passed := summary.API.RequestFail == 0 && summary.API.ResponseFail == 0 && summary.File.Fail == 0
	uc.metrics.RunFinished(uc.clock.Now().Sub(start).Seconds(), passed)
	log.Info("specification run finished",
		"request_pass", summary.API.RequestPass,
		"request_fail", summary.API.RequestFail,
		"response_pass", summary.API.ResponsePass,
		"response_fail", summary.API.ResponseFail,
		"file_pass", summary.File.Pass,
		"file_fail", summary.File.Fail,
		"unresolved", summary.API.Unresolved,
	)
	return summary, nil
}

// IsStage reports whether err is a *StageError raised in stage.
func IsStage(err error, stage Stage) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}
