package params

import "fmt"

// ValidationError reports a rejected field assignment. The field keeps its
// previous value and no observers are notified.
type ValidationError struct {
	Field      string
	Value      interface{}
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %v for field %q: %s", e.Value, e.Field, e.Constraint)
}

// UnknownFieldError reports access to a field name that was never declared.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("no such field: %q", e.Field)
}
