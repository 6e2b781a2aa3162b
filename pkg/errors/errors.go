package errors

import (
	"errors"
	"fmt"
)

// Standard errors
var (
	// ErrNotFound is returned when a requested record is not found
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput is returned when the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch is returned when an embedding's dimension does not
	// match the fixed dimension of the index or store it is offered to
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrBusy is returned when the store's write lock could not be acquired
	// within the configured wait bound. Callers may retry.
	ErrBusy = errors.New("store busy: lock wait timed out")

	// ErrCorruptSnapshot is returned when a persisted snapshot file exists but
	// cannot be parsed. The store refuses to silently start empty over it.
	ErrCorruptSnapshot = errors.New("corrupt snapshot file")

	// ErrMigrationMismatch is returned when post-migration count verification
	// fails; the migration target is discarded and the source is untouched.
	ErrMigrationMismatch = errors.New("migration count verification failed")

	// ErrEmptyText is returned when a record with empty text is offered
	ErrEmptyText = errors.New("record text must not be empty")

	// ErrStoreClosed is returned when an operation is attempted on a closed store
	ErrStoreClosed = errors.New("store is closed")
)

// Wrap wraps an error with additional context
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience function that wraps errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target, and if so, sets
// target to that error value and returns true. Otherwise, it returns false.
// This is a convenience function that wraps errors.As
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
