package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique identifier for specific error conditions in standbyd.
type ErrorCode int

const (
	ErrCodeUnknown       ErrorCode = 1000
	ErrCodeConfigInvalid ErrorCode = 1001
	ErrCodeConfigMissing ErrorCode = 1002

	// Timer service
	ErrCodeTimerCreateFailed ErrorCode = 2001
	ErrCodeTimerStartFailed  ErrorCode = 2002

	// Sequencing: callers should treat these as logic bugs, not transient faults
	ErrCodeEvalInProgress    ErrorCode = 3001
	ErrCodeNotEvaluating     ErrorCode = 3002
	ErrCodeInvalidTransition ErrorCode = 3003
	ErrCodeStateAbsent       ErrorCode = 3004
	ErrCodeWorkerStopped     ErrorCode = 3005

	// External conditions
	ErrCodeSensorFailed     ErrorCode = 4001
	ErrCodeChargeReadFailed ErrorCode = 4002

	ErrCodeControlFailed ErrorCode = 5001
)

// StandbyError is a custom error type that provides structured error information,
// including an error code, the operation being performed, and the underlying cause.
type StandbyError struct {
	// Code is the specific error code.
	Code ErrorCode
	// Msg is a human-readable description of the error.
	Msg string
	// Operation describes the action being performed when the error occurred.
	Operation string
	// Err is the underlying error that caused this error, if any.
	Err error
}

// Error returns a formatted string representation of the error.
func (e *StandbyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %s (cause: %v)", e.Code, e.Operation, e.Msg, e.Err)
	}
	return fmt.Sprintf("[%d] %s: %s", e.Code, e.Operation, e.Msg)
}

// Unwrap returns the underlying error.
func (e *StandbyError) Unwrap() error {
	return e.Err
}

// New creates a new StandbyError with the specified code, operation, message, and underlying error.
func New(code ErrorCode, op, msg string, err error) error {
	return &StandbyError{
		Code:      code,
		Msg:       msg,
		Operation: op,
		Err:       err,
	}
}

// CodeOf returns the code of the first StandbyError in the chain, or ErrCodeUnknown.
func CodeOf(err error) ErrorCode {
	var se *StandbyError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeUnknown
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsSequencing reports whether err is a sequencing violation.
func IsSequencing(err error) bool {
	switch CodeOf(err) {
	case ErrCodeEvalInProgress, ErrCodeNotEvaluating:
		return true
	}
	return false
}

// Personal.AI order the ending
