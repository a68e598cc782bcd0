// Package collector implements the embeddable behavioral tracking client.
// The host environment supplies cookie, session-storage, and transport
// implementations; the collector owns identity bootstrap, buffering, and
// periodic delivery.
package collector

import (
	"sync"
	"time"
)

// CookieJar abstracts durable, cross-session storage for the visitor id.
type CookieJar interface {
	Get(name string) (string, bool)
	Set(name, value string, ttl time.Duration)
}

// SessionStore abstracts per-tab storage for the session id. Values vanish
// when the hosting session ends.
type SessionStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// Clock supplies timestamps, injectable for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// MemoryCookieJar is an in-process CookieJar with expiry, for tests and
// non-browser hosts.
type MemoryCookieJar struct {
	mu      sync.Mutex
	entries map[string]cookieEntry
	clock   Clock
}

type cookieEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryCookieJar creates an empty in-memory jar.
func NewMemoryCookieJar(clock Clock) *MemoryCookieJar {
	if clock == nil {
		clock = systemClock{}
	}
	return &MemoryCookieJar{
		entries: make(map[string]cookieEntry),
		clock:   clock,
	}
}

// Get returns a cookie value if present and unexpired.
func (j *MemoryCookieJar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry, ok := j.entries[name]
	if !ok {
		return "", false
	}
	if j.clock.Now().After(entry.expiresAt) {
		delete(j.entries, name)
		return "", false
	}
	return entry.value, true
}

// Set stores a cookie value with the given lifetime.
func (j *MemoryCookieJar) Set(name, value string, ttl time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[name] = cookieEntry{
		value:     value,
		expiresAt: j.clock.Now().Add(ttl),
	}
}

// MemorySessionStore is an in-process SessionStore for tests and non-browser
// hosts.
type MemorySessionStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{values: make(map[string]string)}
}

// Get returns a stored value.
func (s *MemorySessionStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok
}

// Set stores a value for the life of the store.
func (s *MemorySessionStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}
