// Package cache keeps one pre-fetched media URL per (backend, endpoint)
// pair so command handlers never wait on an outbound fetch. Entries are
// populated during warm-up, replaced by post-use refreshes, and live for
// the process lifetime.
package cache

import "sync"

// Key identifies one cache slot. Comparison is case-sensitive exact match.
type Key struct {
	Backend  string
	Endpoint string
}

func (k Key) String() string {
	return k.Backend + "/" + k.Endpoint
}

// Store is a concurrency-safe map of cache keys to media URLs. Writes are
// atomic per entry; readers never block on in-flight fetches because the
// store itself performs no I/O.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[Key]string),
	}
}

// Get returns the cached URL for key, or false if the key was never
// successfully populated.
func (s *Store) Get(key Key) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	url, exists := s.entries[key]
	return url, exists
}

// Put inserts or overwrites the entry for key. The new value is visible to
// every subsequent Get.
func (s *Store) Put(key Key, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = url
}

// Keys returns a snapshot of all populated keys.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of populated entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
