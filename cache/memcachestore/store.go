// Package memcachestore persists memoized results in memcached.
//
// Values are gob encoded. Result types that travel as interface values must
// be registered with gob.Register before first use; built-in scalar types,
// strings and byte slices need no registration.
//
// Concurrent reads of the same key from one Store share a single network
// round trip. A caller whose context ends stops waiting for it; the others
// still receive its result.
//
// Usage:
//
//	store := memcachestore.New(memcache.New("127.0.0.1:11211"))
//	m, err := cache.Wrap(lookup, cache.WithStore(store))
package memcachestore

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/cherish/cache"
)

// MaxKeyLength is the longest key memcached accepts.
const MaxKeyLength = 250

// Client is the subset of *memcache.Client used by Store.
type Client interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
}

// Store is a cache.Store backed by memcached.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: a missing item is reported as not found, never as an error.
type Store struct {
	client     Client
	prefix     string
	expiration time.Duration
	retry      *RetryConfig
	group      singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every key written by the store.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithExpiration sets the memcached item expiration. Zero, the default,
// keeps items until memcached evicts them. Freshness is still decided by the
// wrapper's TTL; expiration only bounds how long stale items occupy memory.
func WithExpiration(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.expiration = d
		}
	}
}

// New creates a Store on top of client.
func New(client Client, opts ...Option) *Store {
	s := &Store{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewWithServers creates a Store talking to the given memcached servers.
func NewWithServers(servers []string, opts ...Option) *Store {
	return New(memcache.New(servers...), opts...)
}

// envelope carries the stored value so that nil results survive encoding.
type envelope struct {
	Value any
}

// Get fetches and decodes the value for key.
func (s *Store) Get(ctx context.Context, key string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	k := s.itemKey(key)
	// The round trip is shared, so it must outlive any one caller.
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(k, func() (any, error) {
		var item *memcache.Item
		err := s.do(shared, func() error {
			var err error
			item, err = s.client.Get(k)
			return err
		})
		if err != nil {
			return nil, err
		}
		return decode(item.Value)
	})

	var (
		v   any
		err error
	)
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		v, err = res.Val, res.Err
	}
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("memcachestore: get %q: %w", k, err)
	}
	return v.(envelope).Value, true, nil
}

// Set encodes value and writes it under key.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encode(value)
	if err != nil {
		return err
	}

	k := s.itemKey(key)
	item := &memcache.Item{
		Key:        k,
		Value:      data,
		Expiration: s.itemExpiration(),
	}
	err = s.do(ctx, func() error {
		return s.client.Set(item)
	})
	if err != nil {
		return fmt.Errorf("memcachestore: set %q: %w", k, err)
	}
	return nil
}

// maxRelativeExpiration is the longest expiration memcached reads as a
// relative number of seconds; larger values are unix timestamps.
const maxRelativeExpiration = 30 * 24 * time.Hour

func (s *Store) itemExpiration() int32 {
	if s.expiration <= 0 {
		return 0
	}
	if s.expiration > maxRelativeExpiration {
		return int32(time.Now().Add(s.expiration).Unix())
	}
	return int32(s.expiration / time.Second)
}

func encode(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(envelope{Value: value}); err != nil {
		return nil, fmt.Errorf("memcachestore: encode %T: %w", value, err)
	}
	return buf.Bytes(), nil
}

var errDecode = errors.New("memcachestore: decode")

func decode(data []byte) (envelope, error) {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return envelope{}, fmt.Errorf("%w: %v", errDecode, err)
	}
	return env, nil
}

// itemKey maps a cache key to a legal memcached key. Keys that are too long
// or contain spaces or control characters are replaced by a fingerprint that
// keeps the slot prefix readable.
func (s *Store) itemKey(key string) string {
	k := s.prefix + key
	if legalKey(k) {
		return k
	}

	slot := ""
	switch {
	case strings.HasPrefix(key, cache.TimeSlotPrefix):
		slot = cache.TimeSlotPrefix
	case strings.HasPrefix(key, cache.ResultSlotPrefix):
		slot = cache.ResultSlotPrefix
	}
	return s.prefix + slot + "x" + strconv.FormatUint(xxhash.Sum64String(key), 16) +
		"-" + strconv.Itoa(len(key))
}

func legalKey(key string) bool {
	if len(key) > MaxKeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] <= ' ' || key[i] == 0x7f {
			return false
		}
	}
	return true
}

var _ cache.Store = (*Store)(nil)
