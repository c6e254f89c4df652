package provision

import (
	"errors"
	"fmt"
)

// ErrorClass separates failures that abort the run from failures the
// pipeline absorbs and reports.
type ErrorClass string

const (
	// ErrorClassFatal aborts the run with exit status 1.
	// Examples: missing required tool, no network, unclassifiable distro.
	ErrorClassFatal ErrorClass = "fatal"

	// ErrorClassRecoverable is logged and surfaced in the final report
	// but never stops the run. Examples: a single package failing to
	// install, a COPR module that would not enable.
	ErrorClassRecoverable ErrorClass = "recoverable"
)

// RunError is a classified pipeline error.
type RunError struct {
	Class ErrorClass

	// Stage is the pipeline stage that produced the error.
	Stage string

	// Message is the human-readable error message.
	Message string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Stage, e.Message, e.unwrapMessage())
	}
	return fmt.Sprintf("%s: %s", e.Message, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *RunError) Unwrap() error {
	return e.Err
}

func (e *RunError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// NewFatalError creates an error that aborts the run.
func NewFatalError(stage, message string, err error) *RunError {
	return &RunError{Class: ErrorClassFatal, Stage: stage, Message: message, Err: err}
}

// NewRecoverableError creates an error the pipeline reports but survives.
func NewRecoverableError(stage, message string, err error) *RunError {
	return &RunError{Class: ErrorClassRecoverable, Stage: stage, Message: message, Err: err}
}

// IsFatal returns true if the error is classified as fatal.
func IsFatal(err error) bool {
	var e *RunError
	if errors.As(err, &e) {
		return e.Class == ErrorClassFatal
	}
	return false
}
