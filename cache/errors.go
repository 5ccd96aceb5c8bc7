package cache

import (
	"errors"
	"fmt"
)

// Sentinel errors for memoization.
var (
	// ErrInvalidArgument is returned at wrap time when the target is not a
	// function, and by reflective wrappers for arguments that do not fit.
	ErrInvalidArgument = errors.New("cache: invalid argument")

	// ErrKeyDerivation is returned when no usable cache key could be derived.
	ErrKeyDerivation = errors.New("cache: could not derive cache key")

	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("cache: storage failure")

	// ErrPanic is returned to every caller of a refresh whose function panicked.
	ErrPanic = errors.New("cache: panic in wrapped function")

	// ErrUnexpectedType is returned when a stored result cannot be used as the
	// wrapper's result type.
	ErrUnexpectedType = errors.New("cache: stored result has unexpected type")
)

// StorageError reports a failed Store operation.
type StorageError struct {
	Op  string // "get" or "set"
	Key string // store key, including the slot prefix
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cache: storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
