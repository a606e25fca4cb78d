package backend

import (
	"encoding/json"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
)

const successCode = 200

// envelope is the decoded {code, message, data} wrapper of every backend response.
type envelope map[string]any

// check returns a BusinessLogicError unless the envelope code is 200.
func (e envelope) check(op string) error {
	code, ok := e["code"].(float64)
	if !ok {
		return &BusinessLogicError{Op: op, Message: "response has no code"}
	}
	if int(code) != successCode {
		msg, _ := e["message"].(string)
		if msg == "" {
			msg = "unknown error"
		}
		return &BusinessLogicError{Op: op, Code: int(code), Message: msg}
	}
	return nil
}

// lookup evaluates a JSONPath expression against the envelope.
// ok is false when the path does not resolve or resolves to null.
func (e envelope) lookup(path string) (any, bool) {
	v, err := jsonpath.Get(path, map[string]any(e))
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// require is lookup that reports a missing field as a BusinessLogicError.
func (e envelope) require(op, path string) (any, error) {
	v, ok := e.lookup(path)
	if !ok {
		return nil, &BusinessLogicError{Op: op, Message: fmt.Sprintf("missing field %s", path)}
	}
	return v, nil
}

// decodeInto converts a generic JSON value into out.
func decodeInto(op string, v any, out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: re-encoding: %w", op, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &BusinessLogicError{Op: op, Message: fmt.Sprintf("unexpected shape: %v", err)}
	}
	return nil
}

func asInt(op, path string, v any) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, &BusinessLogicError{Op: op, Message: fmt.Sprintf("%s is not an integer", path)}
		}
		return int(i), nil
	default:
		return 0, &BusinessLogicError{Op: op, Message: fmt.Sprintf("%s is %T, want number", path, v)}
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return v != nil
	}
}
