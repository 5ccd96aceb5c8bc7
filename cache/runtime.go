package cache

// Runtime holds the state shared by every wrapper that uses it: the default
// store, the in-flight registry and the per-key locks. Wrappers sharing a
// Runtime are partitioned by cache key, which already encodes the function
// identity.
type Runtime struct {
	store    *MemoryStore
	inflight *Registry
	locks    *keyLocks
}

// NewRuntime creates an isolated runtime.
func NewRuntime() *Runtime {
	return &Runtime{
		store:    NewMemoryStore(),
		inflight: NewRegistry(),
		locks:    newKeyLocks(),
	}
}

var defaultRuntime = NewRuntime()

// DefaultRuntime returns the process-wide runtime used when no WithRuntime
// option is given.
func DefaultRuntime() *Runtime {
	return defaultRuntime
}

// Store returns the runtime's default in-memory store.
func (r *Runtime) Store() *MemoryStore {
	return r.store
}

// Inflight returns the runtime's in-flight registry.
func (r *Runtime) Inflight() *Registry {
	return r.inflight
}
