package engine

import "fmt"

// ValidationError indicates a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ConflictError indicates the request contradicts current state.
type ConflictError struct {
	Message string
}

func (e ConflictError) Error() string { return e.Message }
