package store

import (
	"errors"
	"fmt"
)

// Common store errors used by every LabelStore implementation.
var (
	// ErrCorrupt is returned when stored data cannot be decoded.
	ErrCorrupt = errors.New("stored data is corrupt")

	// ErrUnsupportedVersion is returned when stored data was written in a
	// format version this build does not understand.
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported format version", ErrCorrupt)

	// ErrInvalidEntry is returned when an entry fails validation before
	// being stored, for example an empty feature id or a non-finite
	// coordinate.
	ErrInvalidEntry = errors.New("invalid label entry")

	// ErrDuplicate is returned when two entries share a key.
	ErrDuplicate = errors.New("entry already exists")

	// ErrTransactionFailed is returned when a transaction cannot begin or
	// commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrUnavailable is returned when the backing storage cannot be
	// reached.
	ErrUnavailable = errors.New("store unavailable")
)

// StoreError adds backend and operation context to a store failure.
type StoreError struct {
	Backend   string // e.g. "file", "postgres"
	Operation string // e.g. "load", "save"
	Message   string
	Err       error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Backend, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Backend, e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError.
func NewStoreError(backend, operation, message string, err error) *StoreError {
	return &StoreError{
		Backend:   backend,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
