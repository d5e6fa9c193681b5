package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestTypedErrorsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("storing: %w", NotFoundError{Kind: "task", Key: "t1"})
	var nf NotFoundError
	if !errors.As(wrapped, &nf) || nf.Key != "t1" {
		t.Fatalf("expected NotFoundError recovered, got %v", wrapped)
	}

	wrapped = fmt.Errorf("creating: %w", ConflictError{Kind: "work order", Key: "WO-1"})
	var cf ConflictError
	if !errors.As(wrapped, &cf) || cf.Key != "WO-1" {
		t.Fatalf("expected ConflictError recovered, got %v", wrapped)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidationError{Field: "title", Reason: "required"}
	if err.Error() != "invalid title: required" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
