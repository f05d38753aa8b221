// Package shared contains common domain types, errors, and events that are
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
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrMissingMetadata = errors.New("required metadata missing")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrLockContention = errors.New("lock acquisition timed out")
	ErrLockRelease    = errors.New("lock release failed")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "scoring", "contest", "submission"
	Op      string // Operation that failed, e.g., "CalculateScoreRow"
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

// Contest domain errors
var (
	ErrContestNotFound   = NewDomainError("contest", "Find", ErrNotFound, "contest not found")
	ErrContestNotStarted = NewDomainError("contest", "CheckTime", ErrInvalidState, "contest has not started")
	ErrInvalidContestID  = NewDomainError("contest", "Validate", ErrInvalidID, "invalid contest ID")
)

// Team domain errors
var (
	ErrTeamNotFound         = NewDomainError("team", "Find", ErrNotFound, "team not found")
	ErrCategoryNotFound     = NewDomainError("team", "FindCategory", ErrNotFound, "team category not found")
	ErrMissingSortOrder     = NewDomainError("team", "Validate", ErrMissingMetadata, "team category has no sort order")
	ErrInvalidTeamID        = NewDomainError("team", "Validate", ErrInvalidID, "invalid team ID")
	ErrTeamNotInContest     = NewDomainError("team", "CheckContest", ErrInvalidState, "team does not participate in contest")
	ErrAffiliationNotFound  = NewDomainError("team", "FindAffiliation", ErrNotFound, "team affiliation not found")
	ErrInvalidCategoryColor = NewDomainError("team", "Validate", ErrInvalidFormat, "invalid category color")
)

// Problem domain errors
var (
	ErrProblemNotFound     = NewDomainError("problem", "Find", ErrNotFound, "contest problem not found")
	ErrProblemNotSubmittable = NewDomainError("problem", "CheckState", ErrInvalidState, "problem is closed for submission")
	ErrInvalidPointValue   = NewDomainError("problem", "Validate", ErrNegativeValue, "point value cannot be negative")
)

// Submission domain errors
var (
	ErrSubmissionNotFound = NewDomainError("submission", "Find", ErrNotFound, "submission not found")
	ErrJudgingNotFound    = NewDomainError("submission", "FindJudging", ErrNotFound, "judging not found")
	ErrInvalidVerdict     = NewDomainError("submission", "Validate", ErrInvalidInput, "invalid judging verdict")
)

// Scoring domain errors
var (
	ErrScoreRowLockTimeout = NewDomainError("scoring", "AcquireLock", ErrLockContention, "score row lock wait timed out")
	ErrRankRowLockTimeout  = NewDomainError("scoring", "AcquireLock", ErrLockContention, "rank row lock wait timed out")
	ErrScoreRowLockRelease = NewDomainError("scoring", "ReleaseLock", ErrLockRelease, "score row lock was not released")
	ErrScoreRowNotFound    = NewDomainError("scoring", "FindScoreRow", ErrNotFound, "score cache row not found")
	ErrRankRowNotFound     = NewDomainError("scoring", "FindRankRow", ErrNotFound, "rank cache row not found")
	ErrInvalidVariant      = NewDomainError("scoring", "Validate", ErrInvalidInput, "unknown scoreboard variant")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsLockContention checks if the error is a bounded lock wait that timed out.
// These are the only scoring errors a caller may retry; the recompute itself
// never retries.
func IsLockContention(err error) bool {
	return errors.Is(err, ErrLockContention)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the operation can be retried by the triggering caller.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockContention) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
