package template

import (
	"fmt"
	"sort"
)

// EngineCompiler compiles a template source string into a Renderer.
type EngineCompiler interface {
	Compile(name, source string) (Renderer, error)
}

// Registry maps engine names to their compilers.
type Registry struct {
	engines map[string]EngineCompiler
}

// NewRegistry creates a registry with the built-in engines (expr, jinja2).
func NewRegistry() *Registry {
	return &Registry{
		engines: map[string]EngineCompiler{
			"expr":   &ExprCompiler{},
			"jinja2": &Jinja2Compiler{},
		},
	}
}

// Compile resolves the engine by name and compiles the source.
// An empty engine selects jinja2; an empty source selects DefaultResponseTemplate.
func (r *Registry) Compile(engine, name, source string) (Renderer, error) {
	if engine == "" {
		engine = "jinja2"
	}
	if source == "" {
		engine, source = "jinja2", DefaultResponseTemplate
	}
	ec, ok := r.engines[engine]
	if !ok {
		return nil, fmt.Errorf("unknown template engine: %q (supported: %v)", engine, r.Engines())
	}
	return ec.Compile(name, source)
}

// Engines lists the registered engine names.
func (r *Registry) Engines() []string {
	names := make([]string, 0, len(r.engines))
	for n := range r.engines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
