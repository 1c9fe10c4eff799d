// Package apperrors defines the failure kinds surfaced by the draw console.
//
// ParseError and ValidationError are resolved locally and block submission.
// ConflictError is a recoverable outcome that needs an operator decision.
// BusyError and ExecutionError leave the controller in a retryable state.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for presentation and HTTP status mapping.
type Kind string

const (
	KindParse      Kind = "PARSE"
	KindValidation Kind = "VALIDATION"
	KindConflict   Kind = "CONFLICT"
	KindBusy       Kind = "BUSY"
	KindExecution  Kind = "EXECUTION"
	KindUnknown    Kind = "UNKNOWN"
)

// Fallback messages shown when the server supplied nothing better.
const (
	FallbackParse      = "Error parsing CSV file"
	FallbackValidation = "Please choose a valid date and prize structure first."
	FallbackConflict   = "A draw already exists for this date"
	FallbackBusy       = "A draw is already being submitted"
	FallbackExecution  = "Draw failed"
)

// ErrNoPendingRerun is returned when a rerun is confirmed or declined while
// no conflict is awaiting a decision.
var ErrNoPendingRerun = errors.New("no rerun is pending confirmation")

// ParseError reports an I/O failure while reading participant input.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return FallbackParse
	}
	return fmt.Sprintf("%s: %v", FallbackParse, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError reports missing or invalid input that never reaches the backend.
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

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError reports that a draw already exists for the requested date.
type ConflictError struct {
	StatusCode     int
	RerunEligible  bool
	ExistingDrawID string
	Message        string
}

func (e *ConflictError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = FallbackConflict
	}
	if e.ExistingDrawID != "" {
		return fmt.Sprintf("%s (existing draw %s)", msg, e.ExistingDrawID)
	}
	return msg
}

// BusyError rejects a submission while another one is in flight.
type BusyError struct{}

func (e *BusyError) Error() string {
	return FallbackBusy
}

// ExecutionError covers every other backend or transport failure.
type ExecutionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ExecutionError) Error() string {
	switch {
	case e.Message != "" && e.StatusCode != 0:
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", FallbackExecution, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s (status %d)", FallbackExecution, e.StatusCode)
	}
	return FallbackExecution
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// KindOf classifies err. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var (
		pe *ParseError
		ve *ValidationError
		ce *ConflictError
		be *BusyError
		ee *ExecutionError
	)
	switch {
	case errors.As(err, &pe):
		return KindParse
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ce):
		return KindConflict
	case errors.As(err, &be):
		return KindBusy
	case errors.As(err, &ee):
		return KindExecution
	}
	return KindUnknown
}

// UserMessage returns the message an operator should see for err: the
// server-supplied text when there is one, else the fallback for its kind.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		ve *ValidationError
		ce *ConflictError
		ee *ExecutionError
	)
	switch KindOf(err) {
	case KindParse:
		return FallbackParse
	case KindValidation:
		if errors.As(err, &ve) && ve.Message != "" {
			return ve.Message
		}
		return FallbackValidation
	case KindConflict:
		if errors.As(err, &ce) && ce.Message != "" {
			return ce.Message
		}
		return FallbackConflict
	case KindBusy:
		return FallbackBusy
	case KindExecution:
		if errors.As(err, &ee) && ee.Message != "" {
			return ee.Message
		}
		return FallbackExecution
	}
	return FallbackExecution
}

// AsExecutionError normalises a failure into an ExecutionError, keeping the
// server message when err already carries one. A conflict that cannot be
// rerun is turned into a plain failure and no longer classifies as a
// conflict.
func AsExecutionError(err error) *ExecutionError {
	if err == nil {
		return nil
	}
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		return &ExecutionError{StatusCode: ce.StatusCode, Message: ce.Message}
	}
	return &ExecutionError{Err: err}
}
