package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrRequestNotFound, ErrTaskNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a task with an already-used task ID).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// Entity-specific "not found" errors

	// ErrRequestNotFound indicates that the requested analysis request does
	// not exist in the store.
	ErrRequestNotFound = fmt.Errorf("%w: analysis request", ErrNotFound)

	// ErrTaskNotFound indicates that the requested transcript task does not
	// exist in the store. Result callbacks referencing unknown task IDs
	// surface this error.
	ErrTaskNotFound = fmt.Errorf("%w: transcript task", ErrNotFound)

	// ErrCallerNotFound indicates that the caller identity is not registered.
	ErrCallerNotFound = fmt.Errorf("%w: caller", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// This includes the generic ErrNotFound and all entity-specific not found errors.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
