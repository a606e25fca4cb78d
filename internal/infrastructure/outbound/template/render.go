package template

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/uuid"
)

// DefaultResponseTemplate echoes the request body so label values show up in
// the response part as well.
const DefaultResponseTemplate = "{{ body|safe }}"

// RenderContext holds the request data available to response templates.
type RenderContext struct {
	Method  string
	Path    string
	LabelID string
	Headers map[string]string
	Query   map[string]string
	Body    []byte
	Now     string
}

// header looks up a header case-insensitively.
func (c RenderContext) header(name string) string {
	for k, v := range c.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Renderer produces a response body for a request.
type Renderer interface {
	Render(ctx RenderContext) ([]byte, error)
}

func toJSONString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func extractJSONPath(body []byte, expression string) string {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return ""
	}
	result, err := jsonpath.Get(expression, data)
	if err != nil {
		return ""
	}
	if s, ok := result.(string); ok {
		return s
	}
	return toJSONString(result)
}

func newUUID() string { return uuid.NewString() }
