package template

import (
	"fmt"

	"github.com/flosch/pongo2/v6"
)

// Jinja2Compiler compiles response templates using Pongo2 (Django/Jinja2-style).
type Jinja2Compiler struct{}

// Compile parses the source as a Pongo2 template.
func (c *Jinja2Compiler) Compile(name, source string) (Renderer, error) {
	tpl, err := pongo2.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jinja2 template %q: %w", name, err)
	}
	return &jinja2Renderer{tpl: tpl}, nil
}

type jinja2Renderer struct {
	tpl *pongo2.Template
}

func (r *jinja2Renderer) Render(ctx RenderContext) ([]byte, error) {
	pongoCtx := pongo2.Context{
		"method":   ctx.Method,
		"path":     ctx.Path,
		"label_id": ctx.LabelID,
		"headers":  ctx.Headers,
		"query":    ctx.Query,
		"body":     string(ctx.Body),
		"now":      ctx.Now,

		"header":     ctx.header,
		"queryParam": func(name string) string { return ctx.Query[name] },
		"uuid":       newUUID,
		"toJSON":     toJSONString,
		"jsonPath": func(expression string) string {
			return extractJSONPath(ctx.Body, expression)
		},
	}

	result, err := r.tpl.Execute(pongoCtx)
	if err != nil {
		return nil, fmt.Errorf("jinja2 template render failed: %w", err)
	}
	return []byte(result), nil
}
