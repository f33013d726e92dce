package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is returned to callers of Activate and Register. The tick
// path never returns errors; these exist for the caller's information.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Task is the affected task, if any.
	Task Task

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownTask indicates an activation named no registered task.
	// The engine has already fallen back to idle.
	ErrCodeUnknownTask RuntimeErrorCode = "UNKNOWN_TASK"

	// ErrCodeInvalidSequence indicates a sequence failed validation.
	ErrCodeInvalidSequence RuntimeErrorCode = "INVALID_SEQUENCE"

	// ErrCodeReservedTask indicates a sequence tried to take a reserved name.
	ErrCodeReservedTask RuntimeErrorCode = "RESERVED_TASK"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("%s: %s (task=%s)", e.Code, e.Message, e.Task)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownTaskError returns true if err is an unknown task error.
// Uses errors.As to handle wrapped errors.
func IsUnknownTaskError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownTask
	}
	return false
}

// IsInvalidSequenceError returns true if err rejects a sequence.
func IsInvalidSequenceError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidSequence || re.Code == ErrCodeReservedTask
	}
	return false
}

// NewUnknownTaskError creates a RuntimeError for an unregistered task.
func NewUnknownTaskError(t Task) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownTask,
		Message: "no sequence registered for task, falling back to idle",
		Task:    t,
	}
}

// NewInvalidSequenceError wraps a validation failure.
func NewInvalidSequenceError(name string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidSequence,
		Message: err.Error(),
		Task:    Task(name),
	}
}
