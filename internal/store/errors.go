package store

import (
	"errors"
	"fmt"
)

// ErrorType classifies store errors for better handling
type ErrorType int

const (
	// ErrTypeQuery indicates a statement failed to execute or scan
	ErrTypeQuery ErrorType = iota
	// ErrTypeNotFound indicates the requested row does not exist
	ErrTypeNotFound
	// ErrTypeSchema indicates the database could not be opened or migrated
	ErrTypeSchema
	// ErrTypeInvalid indicates the caller passed data the store rejects
	ErrTypeInvalid
)

// StoreError provides structured error information for store operations
type StoreError struct {
	Type    ErrorType
	Key     string // Package name or job ID the operation was about
	Message string // Human-readable error message
	Err     error  // Underlying error (if any)
}

// Error implements the error interface
func (e *StoreError) Error() string {
	msg := e.Message
	if e.Key != "" {
		msg = fmt.Sprintf("%s %q", e.Message, e.Key)
	}
	if e.Err != nil {
		return fmt.Sprintf("store: %s: %v", msg, e.Err)
	}
	return fmt.Sprintf("store: %s", msg)
}

// Unwrap returns the underlying error for error chain support
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Suggestion returns an actionable suggestion for the user based on the error type.
// Returns an empty string if no specific suggestion is available.
func (e *StoreError) Suggestion() string {
	switch e.Type {
	case ErrTypeNotFound:
		return "Verify the package name is correct, or import it with 'squatwatch seed'"
	case ErrTypeSchema:
		return "Check that the database path is writable and not used by an incompatible version"
	case ErrTypeQuery:
		return "The database may be locked by another process. Try again"
	default:
		return ""
	}
}

// IsNotFound reports whether err is a StoreError of type ErrTypeNotFound.
func IsNotFound(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Type == ErrTypeNotFound
}

func queryError(message, key string, err error) *StoreError {
	return &StoreError{Type: ErrTypeQuery, Key: key, Message: message, Err: err}
}
