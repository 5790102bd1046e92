// Package shared contains common domain types, errors and events that are
// used across all domain packages. This package has zero external dependencies.
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

	// Workflow lifecycle errors
	ErrAlreadyRunning  = errors.New("workflow already running")
	ErrAlreadyTerminal = errors.New("workflow already terminal")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrMissingVariable = errors.New("required variable missing")

	// Assessment errors
	ErrIncompleteAssessment = errors.New("incomplete assessment")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "workflow", "assessment", "notification"
	Op      string // Operation that failed, e.g., "Start", "CompleteTask"
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

// Workflow domain errors
var (
	ErrInstanceNotFound      = NewDomainError("workflow", "Find", ErrNotFound, "process instance not found")
	ErrInstanceAlreadyActive = NewDomainError("workflow", "Start", ErrAlreadyRunning, "an active instance already exists for this subject and session")
	ErrInstanceTerminal      = NewDomainError("workflow", "CompleteTask", ErrAlreadyTerminal, "process instance has no pending task")
	ErrUnknownVariableKey    = NewDomainError("workflow", "Validate", ErrInvalidInput, "unknown workflow variable key")
	ErrUnknownStage          = NewDomainError("workflow", "Validate", ErrInvalidState, "unknown workflow stage")
	ErrUnknownFamily         = NewDomainError("workflow", "Validate", ErrInvalidInput, "unknown workflow family")
)

// Assessment domain errors
var (
	ErrAssessmentIncomplete  = NewDomainError("assessment", "Sum", ErrIncompleteAssessment, "all 35 answers are required")
	ErrAssessmentOverfilled  = NewDomainError("assessment", "Sum", ErrInvalidInput, "more than 35 answers supplied")
	ErrAnswerOutOfRange      = NewDomainError("assessment", "Validate", ErrValueOutOfRange, "answer outside the valid range")
	ErrAnswersNotCoercible   = NewDomainError("assessment", "Coerce", ErrInvalidInput, "answer payload is not a list of integers")
	ErrUnknownAssessmentKind = NewDomainError("assessment", "Validate", ErrInvalidInput, "unknown assessment kind")
)

// Notification domain errors
var (
	ErrRendererNotFound   = NewDomainError("notification", "Resolve", ErrNotFound, "no renderer registered for event kind")
	ErrNotificationFailed = NewDomainError("notification", "Dispatch", ErrExternalService, "failed to dispatch notification")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyRunning checks if the error is a dedup violation on Start.
func IsAlreadyRunning(err error) bool {
	return errors.Is(err, ErrAlreadyRunning)
}

// IsAlreadyTerminal checks if the error indicates a finished instance.
func IsAlreadyTerminal(err error) bool {
	return errors.Is(err, ErrAlreadyTerminal)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrMissingVariable) ||
		errors.Is(err, ErrIncompleteAssessment)
}
