package cache

import "sync"

// Registry tracks the refreshes currently in flight, keyed like the cache.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Lifetime: entries exist only while a refresh runs; nothing is persisted.
type Registry struct {
	mu    sync.Mutex
	calls map[string]*Call
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		calls: make(map[string]*Call),
	}
}

// Register records c as the refresh in flight for key, replacing any
// previous entry.
func (r *Registry) Register(key string, c *Call) {
	r.mu.Lock()
	r.calls[key] = c
	r.mu.Unlock()
}

// Lookup returns the refresh in flight for key, if any.
func (r *Registry) Lookup(key string) (*Call, bool) {
	r.mu.Lock()
	c, ok := r.calls[key]
	r.mu.Unlock()
	return c, ok
}

// Clear removes key if it still maps to c. A refresh that settles late never
// removes the entry of a newer one. Returns whether an entry was removed.
func (r *Registry) Clear(key string, c *Call) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls[key] != c {
		return false
	}
	delete(r.calls, key)
	return true
}

// Len returns the number of refreshes in flight.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
