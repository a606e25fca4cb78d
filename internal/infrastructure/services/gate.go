package services

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultGate passes a specification only when nothing failed.
const DefaultGate = "api.request_fail == 0 && api.response_fail == 0 && file.fail == 0"

// Gate is a compiled boolean expression over summary fields.
type Gate struct {
	source  string
	program *vm.Program
}

// NewGate compiles source. An empty source uses DefaultGate.
func NewGate(source string) (*Gate, error) {
	if source == "" {
		source = DefaultGate
	}
	program, err := expr.Compile(source, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile gate %q: %w", source, err)
	}
	return &Gate{source: source, program: program}, nil
}

// Source returns the expression text.
func (g *Gate) Source() string { return g.source }

// Evaluate runs the gate against fields.
func (g *Gate) Evaluate(fields map[string]any) (bool, error) {
	out, err := expr.Run(g.program, fields)
	if err != nil {
		return false, fmt.Errorf("gate evaluation failed: %w", err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("gate returned %T, want bool", out)
	}
	return ok, nil
}
