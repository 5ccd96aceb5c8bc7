package cache

import (
	"context"
	"sync"
)

// MemoryStore is the default in-process Store.
//
// It has no size bound and never expires anything: entries live as long as
// the store does.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]any),
	}
}

// Get retrieves a value. Returns (nil, false, nil) on miss.
func (s *MemoryStore) Get(_ context.Context, key string) (any, bool, error) {
	s.mu.RLock()
	value, ok := s.entries[key]
	s.mu.RUnlock()
	return value, ok, nil
}

// Set stores a value, overwriting any previous one.
func (s *MemoryStore) Set(_ context.Context, key string, value any) error {
	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored slots.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
