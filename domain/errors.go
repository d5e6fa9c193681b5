package domain

import "fmt"

// NotFoundError reports a missing update or delete target. It is surfaced to
// callers as a 404.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// ConflictError reports a duplicate natural key on a strict-create path. The
// existing record is left untouched.
type ConflictError struct {
	Kind string
	Key  string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s with id '%s' already exists", e.Kind, e.Key)
}

// ValidationError reports a missing or malformed required field, detected
// before any store mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
