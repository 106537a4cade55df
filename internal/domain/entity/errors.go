package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a tenant-scoped lookup misses.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller's identity or company scope
	// does not permit the operation.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports malformed or missing input. It is raised before
// any state is touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// PreconditionError reports a guard violation: the input was valid but the
// record is in the wrong state for the requested transition. The message is
// written for the caller to self-correct.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string {
	return e.Message
}

// NewPreconditionError builds a PreconditionError.
func NewPreconditionError(format string, args ...interface{}) *PreconditionError {
	return &PreconditionError{Message: fmt.Sprintf(format, args...)}
}

// EligibilityError reports a batch operation whose members fail a
// cross-cutting rule. The id partitions are reported in full so the caller
// knows exactly which members failed and why; no state is mutated.
type EligibilityError struct {
	NotFound       []int64
	NotApproved    []int64
	AlreadyClaimed []int64
}

func (e *EligibilityError) Error() string {
	var parts []string
	if len(e.NotFound) > 0 {
		parts = append(parts, fmt.Sprintf("not found: %v", e.NotFound))
	}
	if len(e.NotApproved) > 0 {
		parts = append(parts, fmt.Sprintf("not approved: %v", e.NotApproved))
	}
	if len(e.AlreadyClaimed) > 0 {
		parts = append(parts, fmt.Sprintf("already claimed: %v", e.AlreadyClaimed))
	}
	if len(parts) == 0 {
		return "units not eligible"
	}
	return "units not eligible: " + strings.Join(parts, "; ")
}

// HasViolations reports whether any partition is non-empty.
func (e *EligibilityError) HasViolations() bool {
	return len(e.NotFound) > 0 || len(e.NotApproved) > 0 || len(e.AlreadyClaimed) > 0
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPrecondition reports whether err is a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// IsEligibility reports whether err is an EligibilityError.
func IsEligibility(err error) bool {
	var ee *EligibilityError
	return errors.As(err, &ee)
}
