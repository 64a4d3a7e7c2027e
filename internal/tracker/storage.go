package tracker

import (
	"sync"
	"time"
)

// Storage is the client-side key/value store identifiers live in, with the
// expiry semantics of a browser cookie.
type Storage interface {
	Get(name string) (string, bool)
	Set(name, value string, ttl time.Duration)
}

type storedValue struct {
	value     string
	expiresAt time.Time
}

// MemoryStorage is a cookie-jar style Storage driven by an injected clock.
type MemoryStorage struct {
	mu    sync.Mutex
	now   func() time.Time
	items map[string]storedValue
}

// NewMemoryStorage returns an empty jar. A nil clock uses time.Now.
func NewMemoryStorage(now func() time.Time) *MemoryStorage {
	if now == nil {
		now = time.Now
	}
	return &MemoryStorage{now: now, items: make(map[string]storedValue)}
}

func (m *MemoryStorage) Get(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[name]
	if !ok {
		return "", false
	}
	if !m.now().Before(item.expiresAt) {
		delete(m.items, name)
		return "", false
	}
	return item.value, true
}

// Set stores value until now+ttl. A non-positive ttl removes the entry.
func (m *MemoryStorage) Set(name, value string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl <= 0 {
		delete(m.items, name)
		return
	}
	m.items[name] = storedValue{value: value, expiresAt: m.now().Add(ttl)}
}
