package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeStorageRead        ErrorType = "storage_read"
	ErrorTypeStorageWrite       ErrorType = "storage_write"
	ErrorTypeStorageUnavailable ErrorType = "storage_unavailable"
	ErrorTypeDecode             ErrorType = "decode"
	ErrorTypeConfig             ErrorType = "config"
	ErrorTypeUnknown            ErrorType = "unknown"
)

// Error represents a progress-store error with type information
type Error struct {
	Type ErrorType
	Op   string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" (key %q)", e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error wrapping err
func New(errorType ErrorType, op, key string, err error) *Error {
	return &Error{Type: errorType, Op: op, Key: key, Err: err}
}

// IsRecoverable reports whether an error type is handled locally by falling
// back to in-memory state. Storage and decode failures never reach the user.
func IsRecoverable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeStorageRead, ErrorTypeStorageWrite, ErrorTypeStorageUnavailable, ErrorTypeDecode:
		return true
	case ErrorTypeConfig:
		return false
	default:
		return false
	}
}

// TypeOf extracts the ErrorType of err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}
