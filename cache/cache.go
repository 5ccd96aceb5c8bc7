package cache

import (
	"context"
	"strings"
)

// Slot prefixes for the two values kept per cache key.
const (
	TimeSlotPrefix   = "lastTime_"
	ResultSlotPrefix = "lastResult_"
)

// Store is the persistence contract for memoized results.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use; Get and Set
//     are treated as atomic single operations.
//   - Presence: Get reports absence through ok=false, never through a zero or
//     nil value. A stored false, 0 or "" is a present value.
//   - Errors: any returned error fails the invocation that triggered it.
//   - Blocking: asynchronous backends must complete before returning.
type Store interface {
	// Get returns the value stored under key, with ok=false if absent.
	Get(ctx context.Context, key string) (value any, ok bool, err error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value any) error
}

// GetFunc is the getter half of a caller-supplied store.
type GetFunc func(ctx context.Context, key string) (any, bool, error)

// SetFunc is the setter half of a caller-supplied store.
type SetFunc func(ctx context.Context, key string, value any) error

// StoreFuncs adapts a get/set function pair to the Store interface.
type StoreFuncs struct {
	GetFunc GetFunc
	SetFunc SetFunc
}

// Get calls s.GetFunc.
func (s StoreFuncs) Get(ctx context.Context, key string) (any, bool, error) {
	return s.GetFunc(ctx, key)
}

// Set calls s.SetFunc.
func (s StoreFuncs) Set(ctx context.Context, key string, value any) error {
	return s.SetFunc(ctx, key, value)
}

// TimeKey returns the store key holding the refresh start time for key.
func TimeKey(key string) string {
	return TimeSlotPrefix + key
}

// ResultKey returns the store key holding the stored result for key.
func ResultKey(key string) string {
	return ResultSlotPrefix + key
}

// ValidateKey checks that a derived key is usable.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrKeyDerivation
	}
	return nil
}

var _ Store = StoreFuncs{}
