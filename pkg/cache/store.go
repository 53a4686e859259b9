package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/Sternrassler/reqstate/pkg/logging"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the store
	ErrCacheMiss = errors.New("cache miss")
)

// Store is the result cache: a mapping from cache key to the last
// successful payload for that key.
//
// Entries never expire. A value is overwritten by every successful fetch for
// its key and only disappears through Clear.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the payload stored under key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores payload under key, replacing any previous value.
	Set(ctx context.Context, key string, payload []byte) error

	// Has reports whether key holds a payload.
	Has(ctx context.Context, key string) bool

	// Clear removes every entry. It exists for tests and explicit resets.
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]byte),
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	payload, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("memory").Inc()
	return payload, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = payload
	return nil
}

// Has implements Store.
func (m *MemoryStore) Has(_ context.Context, key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[key]
	return ok
}

// Clear implements Store.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string][]byte)
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Lookup reads key from store and reports a hit. Store failures other than a
// miss are counted and reported as a miss; callers treat the result cache as
// best effort.
func Lookup(ctx context.Context, store Store, key string) ([]byte, bool) {
	if store == nil {
		return nil, false
	}

	payload, err := store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			logger := logging.NewLogger("cache")
			logger.Warn().Err(err).Str("key", key).Msg("Cache get error")
		}
		return nil, false
	}
	return payload, true
}
