package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/cherish/observe"
)

// Func is the shape of a function that can be memoized directly.
type Func[V any] func(ctx context.Context, args ...any) (V, error)

// Memo is a memoized function.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Single-flight: at most one underlying invocation per cache key is in
//     flight at any time; concurrent callers share its outcome.
//   - Errors: errors from the wrapped function reach every coalesced caller
//     unchanged and are never stored.
type Memo[V any] struct {
	fn       Func[V]
	identity string
	meta     observe.FuncMeta
	policy   Policy
	store    Store
	keyer    Keyer
	rt       *Runtime
	logger   observe.Logger
	mw       *observe.Middleware
	now      func() time.Time
}

// Wrap memoizes fn. It fails with ErrInvalidArgument if fn is nil.
func Wrap[V any](fn Func[V], opts ...Option) (*Memo[V], error) {
	if fn == nil {
		return nil, ErrInvalidArgument
	}
	return newMemo(fn, fn, opts)
}

// newMemo builds a wrapper around call, identifying it by target.
func newMemo[V any](target any, call Func[V], opts []Option) (*Memo[V], error) {
	cfg := newConfig(opts)

	identity := cfg.name
	if identity == "" {
		var err error
		if identity, err = FuncIdentity(target); err != nil {
			return nil, err
		}
	}

	meta := observe.FuncMeta{Identity: identity, Name: shortName(identity)}
	m := &Memo[V]{
		fn:       call,
		identity: identity,
		meta:     meta,
		policy:   cfg.policy,
		store:    cfg.store,
		keyer:    cfg.keyer,
		rt:       cfg.runtime,
		logger:   cfg.logger.WithFunc(meta),
		mw:       cfg.middleware,
		now:      cfg.now,
	}

	baseKey, err := m.keyer.Key(identity, nil)
	if err != nil {
		return nil, err
	}
	m.logger.Debug(context.Background(), "caching calls",
		observe.Field{Key: "cache.key", Value: baseKey},
		observe.Field{Key: "ttl_seconds", Value: m.policy.TTL.Seconds()},
	)

	return m, nil
}

// Identity returns the function identity that prefixes every cache key.
func (m *Memo[V]) Identity() string {
	return m.identity
}

// TTL returns the freshness window.
func (m *Memo[V]) TTL() time.Duration {
	return m.policy.TTL
}

// Call invokes the memoized function and waits for its result.
func (m *Memo[V]) Call(ctx context.Context, args ...any) (V, error) {
	p, err := m.Go(ctx, args...)
	if err != nil {
		var zero V
		return zero, err
	}
	return p.Wait(ctx)
}

// Go starts a memoized call and returns its result handle.
//
// The decision sequence is:
//  1. derive the cache key (ErrKeyDerivation is returned directly);
//  2. read the stored start time and result;
//  3. if the result is fresh, return it already settled;
//  4. if a refresh for the key is in flight, return its handle;
//  5. otherwise record the start time, register a new handle and invoke the
//     function on its own goroutine.
//
// Storage and function failures are delivered through the handle.
func (m *Memo[V]) Go(ctx context.Context, args ...any) (*Pending[V], error) {
	key, err := m.keyer.Key(m.identity, args)
	if err != nil {
		return nil, err
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	m.logger.Debug(ctx, "function called", observe.Field{Key: "cache.key", Value: key})

	unlock := m.rt.locks.Lock(key)

	now := m.now()
	entry, err := m.load(ctx, key, now)
	if err != nil {
		unlock()
		m.mw.RecordOutcome(ctx, m.meta, observe.OutcomeError)
		m.logger.Warn(ctx, "reading cache entry failed", observe.Field{Key: "error", Value: err.Error()})
		return &Pending[V]{call: settledCall(nil, err)}, nil
	}

	if m.policy.IsFresh(entry, now) {
		unlock()
		m.mw.RecordOutcome(ctx, m.meta, observe.OutcomeHit)
		m.logger.Debug(ctx, "previous result still valid, returning from cache",
			observe.Field{Key: "age_ms", Value: entry.Age(now).Milliseconds()},
		)
		return &Pending[V]{call: settledCall(entry.LastResult, nil)}, nil
	}

	if c, ok := m.rt.inflight.Lookup(key); ok {
		unlock()
		m.mw.RecordOutcome(ctx, m.meta, observe.OutcomeCoalesced)
		m.logger.Debug(ctx, "pending result found, returning it")
		return &Pending[V]{call: c}, nil
	}

	if err := m.store.Set(ctx, TimeKey(key), encodeTime(now)); err != nil {
		unlock()
		serr := &StorageError{Op: "set", Key: TimeKey(key), Err: err}
		m.mw.RecordOutcome(ctx, m.meta, observe.OutcomeError)
		m.logger.Warn(ctx, "recording refresh start failed", observe.Field{Key: "error", Value: serr.Error()})
		return &Pending[V]{call: settledCall(nil, serr)}, nil
	}

	c := newCall()
	m.rt.inflight.Register(key, c)
	unlock()

	m.mw.RecordOutcome(ctx, m.meta, observe.OutcomeMiss)
	m.logger.Debug(ctx, "refreshing")

	// The refresh is shared by every coalesced caller, so no single caller's
	// cancellation may stop it.
	go m.refresh(context.WithoutCancel(ctx), key, args, c)

	return &Pending[V]{call: c}, nil
}

// load reads the stored entry for key. The result slot is only read when
// the start time is recent enough for it to matter.
func (m *Memo[V]) load(ctx context.Context, key string, now time.Time) (Entry, error) {
	var entry Entry

	raw, ok, err := m.store.Get(ctx, TimeKey(key))
	if err != nil {
		return entry, &StorageError{Op: "get", Key: TimeKey(key), Err: err}
	}
	if ok {
		entry.LastTime, entry.HasTime = decodeTime(raw)
	}
	if !entry.HasTime || now.Sub(entry.LastTime) >= m.policy.TTL {
		return entry, nil
	}

	raw, ok, err = m.store.Get(ctx, ResultKey(key))
	if err != nil {
		return entry, &StorageError{Op: "get", Key: ResultKey(key), Err: err}
	}
	entry.LastResult, entry.HasResult = raw, ok
	return entry, nil
}

// refresh runs the underlying function, then stores its result and retires
// the in-flight entry under the key lock, and only then publishes the
// outcome. The entry is retired on every path, failures included.
func (m *Memo[V]) refresh(ctx context.Context, key string, args []any, c *Call) {
	run := m.mw.Wrap(m.meta, func(ctx context.Context) (any, error) {
		return m.invoke(ctx, args)
	})

	val, err := run(ctx)
	if err != nil {
		val = nil
	}

	writeFailed := false
	unlock := m.rt.locks.Lock(key)
	if err == nil {
		if serr := m.store.Set(ctx, ResultKey(key), val); serr != nil {
			val, err = nil, &StorageError{Op: "set", Key: ResultKey(key), Err: serr}
			writeFailed = true
		}
	}
	m.rt.inflight.Clear(key, c)
	unlock()

	switch {
	case writeFailed:
		m.logger.Warn(ctx, "caching result failed", observe.Field{Key: "error", Value: err.Error()})
	case err == nil:
		m.logger.Debug(ctx, "result cached")
	}
	c.settle(val, err)
}

// invoke calls the wrapped function, turning a panic into ErrPanic.
func (m *Memo[V]) invoke(ctx context.Context, args []any) (val any, err error) {
	defer func() {
		if r := recover(); r != nil {
			val, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	v, err := m.fn(ctx, args...)
	if err != nil {
		return nil, err
	}
	return v, nil
}
