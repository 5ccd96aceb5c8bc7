package cache

import (
	"context"
	"fmt"
	"reflect"
)

// Call is the untyped result handle of one refresh. It is what the
// In-flight Registry stores, so wrappers with different result types can
// share a Runtime.
type Call struct {
	done chan struct{}
	val  any
	err  error
}

func newCall() *Call {
	return &Call{done: make(chan struct{})}
}

// settledCall returns a handle that is already complete.
func settledCall(val any, err error) *Call {
	c := newCall()
	c.settle(val, err)
	return c
}

// settle publishes the outcome. It must be called exactly once.
func (c *Call) settle(val any, err error) {
	c.val = val
	c.err = err
	close(c.done)
}

// Done is closed once the call has settled.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Pending is the eventually-settling result of a memoized call. Cache hits
// return an already settled Pending; callers coalesced onto a refresh in
// flight share the same underlying Call.
type Pending[V any] struct {
	call *Call
}

// Done is closed once the result is available.
func (p *Pending[V]) Done() <-chan struct{} {
	return p.call.done
}

// Settled reports whether the result is available without blocking.
func (p *Pending[V]) Settled() bool {
	select {
	case <-p.call.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the result is available or ctx is done. Giving up on
// the wait does not stop the refresh; other callers still receive its
// outcome.
func (p *Pending[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-p.call.done:
		return p.result()
	default:
	}

	select {
	case <-p.call.done:
		return p.result()
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

func (p *Pending[V]) result() (V, error) {
	if p.call.err != nil {
		var zero V
		return zero, p.call.err
	}
	return as[V](p.call.val)
}

// as converts a stored result to the wrapper's result type. A nil result is
// the zero value, so nil pointers and nil interfaces round-trip.
func as[V any](val any) (V, error) {
	var zero V
	if val == nil {
		return zero, nil
	}
	v, ok := val.(V)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %s", ErrUnexpectedType, val, reflect.TypeFor[V]())
	}
	return v, nil
}
