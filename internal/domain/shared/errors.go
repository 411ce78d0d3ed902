// Package shared contains common domain types and errors used across all
// domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrInvalidFormat = errors.New("invalid format")

	// Document processing errors
	ErrExtraction = errors.New("extraction failed")
	ErrResolution = errors.New("resolution failed")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "record", "document", "resolver"
	Op      string // Operation that failed, e.g., "Create", "Resolve"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Document extraction errors. A missing required scalar aborts the current
// document only; optional scalars degrade to unset values.
var (
	ErrEmptyDocument    = NewDomainError("document", "Normalize", ErrExtraction, "document has no readable pages")
	ErrRegnoNotFound    = NewDomainError("document", "ExtractRegno", ErrExtraction, "registration number not found")
	ErrNameNotFound     = NewDomainError("document", "ExtractName", ErrExtraction, "student name not found")
	ErrDOBNotFound      = NewDomainError("document", "ExtractDOB", ErrExtraction, "date of birth not found")
	ErrPeriodNotFound   = NewDomainError("document", "ExtractPeriod", ErrExtraction, "exam period banner not found")
	ErrPeriodUnresolved = NewDomainError("resolver", "Resolve", ErrResolution, "exam period not in lookup table")
)

// Record domain errors
var (
	ErrStudentNotFound   = NewDomainError("record", "FindStudent", ErrNotFound, "student not found")
	ErrSubjectNotFound   = NewDomainError("record", "FindSubject", ErrNotFound, "subject not found")
	ErrSemesterNotFound  = NewDomainError("record", "FindSemester", ErrNotFound, "semester not found")
	ErrGradeNotFound     = NewDomainError("record", "FindGrade", ErrNotFound, "grade not found")
	ErrSemesterProcessed = NewDomainError("record", "ProcessDocument", ErrAlreadyProcessed, "semester already processed for student")
	ErrSemesterConflict  = NewDomainError("record", "CreateSemester", ErrConcurrentModification, "concurrent creation of the same semester")
	ErrStoreUnavailable  = NewDomainError("record", "Store", ErrServiceUnavailable, "record store is unavailable")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsAlreadyProcessed checks if the error marks a duplicate document.
// A duplicate is a recognized outcome, not a failure.
func IsAlreadyProcessed(err error) bool {
	return errors.Is(err, ErrAlreadyProcessed)
}

// IsExtraction checks if the error is a document-level extraction failure.
func IsExtraction(err error) bool {
	return errors.Is(err, ErrExtraction)
}

// IsResolution checks if the error is an exam-period resolution failure.
func IsResolution(err error) bool {
	return errors.Is(err, ErrResolution)
}

// IsConflict checks if the error is a concurrent-creation conflict.
// Conflicts on the (student, ordinal) pair are re-checked and reported as
// duplicates, never surfaced as fatal.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsUnavailable checks if the error is an environment-level store failure.
// These propagate to the batch driver and are not retried per document.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrTimeout)
}
