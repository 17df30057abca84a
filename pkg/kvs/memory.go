package kvs

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiration
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore keeps everything in a map. Expired entries are dropped lazily
// on access; the store holds at most a handful of session keys, so there is
// no background sweeper.
type MemoryStore struct {
	mu      sync.RWMutex
	prefix  string
	entries map[string]*memoryEntry
	closed  bool
}

// NewMemoryStore creates a volatile in-memory store.
func NewMemoryStore(namespace string) *MemoryStore {
	return &MemoryStore{
		prefix:  namespacePrefix(namespace),
		entries: make(map[string]*memoryEntry),
	}
}

func namespacePrefix(namespace string) string {
	if namespace == "" {
		return ""
	}
	return namespace + ":"
}

// Get retrieves a value by key.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	full := m.prefix + key
	entry, ok := m.entries[full]
	if !ok {
		return nil, ErrNotFound
	}
	if entry.expired(time.Now()) {
		delete(m.entries, full)
		return nil, ErrNotFound
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

// Set stores a value with optional TTL.
func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	entry := &memoryEntry{value: make([]byte, len(value))}
	copy(entry.value, value)
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	m.entries[m.prefix+key] = entry
	return nil
}

// Delete removes a key.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	delete(m.entries, m.prefix+key)
	return nil
}

// Exists reports whether a key exists and has not expired.
func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrClosed
	}

	entry, ok := m.entries[m.prefix+key]
	return ok && !entry.expired(time.Now()), nil
}

// Keys returns all live keys matching a prefix.
func (m *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	full := m.prefix + prefix
	now := time.Now()

	var keys []string
	for key, entry := range m.entries {
		if !strings.HasPrefix(key, full) || entry.expired(now) {
			continue
		}
		keys = append(keys, strings.TrimPrefix(key, m.prefix))
	}
	return keys, nil
}

// Close marks the store closed and drops all entries.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.closed = true
	m.entries = nil
	return nil
}
