package store

import "fmt"

// NotFoundError indicates the record was not found.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ValidationError indicates a client-side validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// BackendError indicates a transient backend failure. The core does not
// retry these; the caller or its invoking infrastructure owns retry.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
