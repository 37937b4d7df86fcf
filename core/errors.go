package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is().
// These are generic errors that can be wrapped with additional context.
var (
	// Backend errors
	ErrBufferUnavailable = errors.New("recency buffer unavailable")
	ErrIndexUnavailable  = errors.New("search index unavailable")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")

	// State errors
	ErrNotInitialized = errors.New("not initialized")
	ErrAlreadyClosed  = errors.New("already closed")

	// Operation errors
	ErrTimeout = errors.New("operation timeout")
)

// StoreError provides structured error information with context.
// It implements the error interface and supports error wrapping.
type StoreError struct {
	Op      string // Operation that failed (e.g., "buffer.Push")
	Kind    string // Error kind (e.g., "buffer", "index", "config")
	Key     string // Optional key or namespace involved
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *StoreError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.Key != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.Key, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError
func NewStoreError(op, kind string, err error) *StoreError {
	return &StoreError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// WithKey adds the key or namespace involved in the failure
func (e *StoreError) WithKey(key string) *StoreError {
	e.Key = key
	return e
}
