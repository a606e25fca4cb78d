package usecases

import (
	"context"
	"fmt"
	"slices"

	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/domain/verdict"
	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
	"github.com/sophialabs/labelcheck/internal/infrastructure/services"
)

// SpecificationRunner runs one specification. *RunSpecificationUseCase satisfies it.
type SpecificationRunner interface {
	Execute(ctx context.Context, spec label.Specification) (verdict.SpecificationSummary, error)
}

// RunAllResult holds every summary produced and the gate outcome.
type RunAllResult struct {
	Summaries []verdict.SpecificationSummary
	// GateFailures names the specifications whose summary failed the gate.
	GateFailures []string
}

// Passed reports whether every summary passed the gate.
func (r RunAllResult) Passed() bool { return len(r.GateFailures) == 0 }

// RunAllUseCase runs every specification of the catalogue, or a named
// subset, one after another.
type RunAllUseCase struct {
	catalogue label.Catalogue
	runner    SpecificationRunner
	gate      *services.Gate
	logger    ports.Logger
}

// NewRunAllUseCase creates a new use case.
func NewRunAllUseCase(catalogue label.Catalogue, runner SpecificationRunner, gate *services.Gate, logger ports.Logger) *RunAllUseCase {
	return &RunAllUseCase{catalogue: catalogue, runner: runner, gate: gate, logger: logger}
}

// Execute runs the selected specifications in catalogue order. An empty
// filter selects all; unknown names are an error. The first failing run
// stops the loop and its error is returned with the summaries gathered so far.
func (uc *RunAllUseCase) Execute(ctx context.Context, filter []string) (RunAllResult, error) {
	var result RunAllResult

	specs, err := uc.catalogue.Specifications(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list specifications: %w", err)
	}
	selected, err := selectSpecifications(specs, filter)
	if err != nil {
		return result, err
	}
	uc.logger.Info("running specifications", "count", len(selected), "gate", uc.gate.Source())

	for _, spec := range selected {
		summary, err := uc.runner.Execute(ctx, spec)
		if err != nil {
			return result, err
		}
		result.Summaries = append(result.Summaries, summary)

		ok, err := uc.gate.Evaluate(summary.Fields())
		if err != nil {
			return result, fmt.Errorf("gate for %q: %w", spec.Name, err)
		}
		if !ok {
			uc.logger.Warn("specification failed the gate", "specification", spec.Name, "run_id", summary.RunID)
			result.GateFailures = append(result.GateFailures, spec.Name)
		}
	}
	return result, nil
}

func selectSpecifications(specs []label.Specification, filter []string) ([]label.Specification, error) {
	if len(filter) == 0 {
		return specs, nil
	}
	var out []label.Specification
	for _, s := range specs {
		if slices.Contains(filter, s.Name) {
			out = append(out, s)
		}
	}
	for _, name := range filter {
		if !slices.ContainsFunc(out, func(s label.Specification) bool { return s.Name == name }) {
			return nil, fmt.Errorf("%q: %w", name, label.ErrNotFound)
		}
	}
	return out, nil
}
