package backend

import "fmt"

// BusinessLogicError reports a backend response that is well-formed HTTP but
// not what the operation expects: a non-200 envelope code or a missing field.
type BusinessLogicError struct {
	Op      string
	Code    int
	Message string
}

func (e *BusinessLogicError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: backend returned code %d: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}
