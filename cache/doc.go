// Package cache memoizes function calls.
//
// It derives a deterministic key from a function's identity and its call
// arguments, serves stored results while they are younger than a TTL, and
// coalesces concurrent calls that share a key into a single underlying
// invocation. Results are persisted through a pluggable Store so callers can
// swap the in-process default for a durable or shared backend.
//
// # Usage
//
//	fetch := func(ctx context.Context, args ...any) (*User, error) {
//	    return db.LoadUser(ctx, args[0].(int))
//	}
//
//	memo, err := cache.Wrap(fetch, cache.WithTTL(time.Minute))
//	if err != nil {
//	    return err
//	}
//	user, err := memo.Call(ctx, 42)
//
// # Storage layout
//
// Each derived key owns two slots in the Store: "lastTime_<key>" holds the
// unix-millisecond start time of the refresh that produced the stored
// result, and "lastResult_<key>" holds the result itself. Entries are never
// deleted; a stale entry is overwritten by the next refresh.
//
// # Concurrency
//
// The decision made on each call (read both slots, check freshness, look for
// a refresh in flight, record the start time) runs under a per-key lock. The
// wrapped function runs outside that lock on its own goroutine, and every
// caller that arrives while it runs shares its outcome.
package cache
