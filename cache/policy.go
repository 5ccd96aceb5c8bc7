package cache

import (
	"math"
	"time"
)

// DefaultTTL is used when a wrapper is created without a positive TTL.
const DefaultTTL = 300 * time.Second

// Policy decides whether a stored result may be served.
type Policy struct {
	// TTL is how long a result stays fresh, measured from the start of the
	// refresh that produced it.
	TTL time.Duration
}

// DefaultPolicy returns a policy with DefaultTTL.
func DefaultPolicy() Policy {
	return Policy{TTL: DefaultTTL}
}

// PolicyFromSeconds builds a policy from a TTL in seconds. Non-positive and
// non-finite values fall back to DefaultTTL. Finite values beyond the range
// of time.Duration are capped at its maximum, and positive values below a
// nanosecond are raised to one.
func PolicyFromSeconds(seconds float64) Policy {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return DefaultPolicy()
	}
	ns := seconds * float64(time.Second)
	switch {
	case ns >= math.MaxInt64:
		return Policy{TTL: time.Duration(math.MaxInt64)}
	case ns < 1:
		return Policy{TTL: time.Nanosecond}
	}
	return Policy{TTL: time.Duration(ns)}
}

func (p Policy) withDefaults() Policy {
	if p.TTL <= 0 {
		p.TTL = DefaultTTL
	}
	return p
}

// Entry is the stored state for one cache key.
type Entry struct {
	LastTime   time.Time
	HasTime    bool
	LastResult any
	HasResult  bool
}

// IsFresh reports whether e may be served at now: the start time must be
// recorded, a result must be present, and its age must be below the TTL.
func (p Policy) IsFresh(e Entry, now time.Time) bool {
	if !e.HasTime || !e.HasResult || e.LastTime.IsZero() {
		return false
	}
	return now.Sub(e.LastTime) < p.TTL
}

// Age returns how old the entry is at now, or -1 if no start time is recorded.
func (e Entry) Age(now time.Time) time.Duration {
	if !e.HasTime {
		return -1
	}
	return now.Sub(e.LastTime)
}

// encodeTime is the stored form of a refresh start time.
func encodeTime(t time.Time) int64 {
	return t.UnixMilli()
}

// decodeTime accepts the stored forms a backend may hand back: the int64
// written by encodeTime, other integer widths, float64 from JSON decoders,
// or a time.Time from stores that keep typed values.
func decodeTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case int64:
		return time.UnixMilli(t), true
	case int:
		return time.UnixMilli(int64(t)), true
	case int32:
		return time.UnixMilli(int64(t)), true
	case uint64:
		return time.UnixMilli(int64(t)), true
	case float64:
		return time.UnixMilli(int64(t)), true
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	default:
		return time.Time{}, false
	}
}
