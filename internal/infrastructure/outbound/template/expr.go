package template

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprCompiler compiles response templates using the Expr language with ${ } interpolation.
type ExprCompiler struct{}

// Compile parses the source for ${ } delimiters and compiles each expression.
func (c *ExprCompiler) Compile(name, source string) (Renderer, error) {
	segments, err := parseExprSegments(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expr template %q: %w", name, err)
	}

	// If no dynamic segments found, return a static renderer.
	hasDynamic := false
	for _, seg := range segments {
		if seg.program != nil {
			hasDynamic = true
			break
		}
	}
	if !hasDynamic {
		return &staticRenderer{body: []byte(source)}, nil
	}

	return &exprRenderer{segments: segments}, nil
}

type exprSegment struct {
	static  string
	program *vm.Program
}

func parseExprSegments(source string) ([]exprSegment, error) {
	var segments []exprSegment
	remaining := source

	for {
		idx := strings.Index(remaining, "${")
		if idx < 0 {
			if remaining != "" {
				segments = append(segments, exprSegment{static: remaining})
			}
			break
		}

		// Add static part before ${.
		if idx > 0 {
			segments = append(segments, exprSegment{static: remaining[:idx]})
		}

		// Find closing }.
		rest := remaining[idx+2:]
		closeIdx := findClosingBrace(rest)
		if closeIdx < 0 {
			return nil, fmt.Errorf("unclosed ${ at position %d", idx)
		}

		expression := rest[:closeIdx]
		program, err := expr.Compile(expression, expr.Env(exprEnv{}))
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}
		segments = append(segments, exprSegment{program: program})
		remaining = rest[closeIdx+1:]
	}

	return segments, nil
}

// findClosingBrace finds the matching } accounting for nested braces.
func findClosingBrace(s string) int {
	depth := 0
	inString := false
	var stringChar byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			if ch == '\\' && i+1 < len(s) {
				i++ // skip escaped char
				continue
			}
			if ch == stringChar {
				inString = false
			}
			continue
		}
		switch ch {
		case '\'', '"':
			inString = true
			stringChar = ch
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// exprEnv defines the environment available to Expr expressions.
type exprEnv struct {
	LabelID    func() string       `expr:"labelId"`
	Method     func() string       `expr:"method"`
	QueryParam func(string) string `expr:"queryParam"`
	Header     func(string) string `expr:"header"`
	Body       func() string       `expr:"body"`
	Now        func() string       `expr:"now"`
	UUID       func() string       `expr:"uuid"`
	ToJSON     func(any) string    `expr:"toJSON"`
	JsonPath   func(string) string `expr:"jsonPath"`
}

func buildExprEnv(ctx RenderContext) exprEnv {
	return exprEnv{
		LabelID:    func() string { return ctx.LabelID },
		Method:     func() string { return ctx.Method },
		QueryParam: func(name string) string { return ctx.Query[name] },
		Header:     ctx.header,
		Body:       func() string { return string(ctx.Body) },
		Now:        func() string { return ctx.Now },
		UUID:       newUUID,
		ToJSON:     toJSONString,
		JsonPath: func(expression string) string {
			return extractJSONPath(ctx.Body, expression)
		},
	}
}

type exprRenderer struct {
	segments []exprSegment
}

func (r *exprRenderer) Render(ctx RenderContext) ([]byte, error) {
	env := buildExprEnv(ctx)

	var buf strings.Builder
	for _, seg := range r.segments {
		if seg.program == nil {
			buf.WriteString(seg.static)
			continue
		}
		result, err := expr.Run(seg.program, env)
		if err != nil {
			return nil, fmt.Errorf("expression evaluation failed: %w", err)
		}
		fmt.Fprintf(&buf, "%v", result)
	}
	return []byte(buf.String()), nil
}

// staticRenderer returns a fixed body (used when no dynamic segments are found).
type staticRenderer struct {
	body []byte
}

func (r *staticRenderer) Render(RenderContext) ([]byte, error) {
	return r.body, nil
}
