package utils

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// TTLMap provides a thread-safe map with expiring entries.
// Expired entries are dropped lazily on access and by Sweep.
type TTLMap[K comparable, V any] struct {
	mu      sync.RWMutex
	data    map[K]V
	expires map[K]time.Time
	ttl     time.Duration
	now     Clock
}

// NewTTLMap creates a new TTLMap with the specified default TTL.
func NewTTLMap[K comparable, V any](ttl time.Duration, now Clock) *TTLMap[K, V] {
	if now == nil {
		now = time.Now
	}

	return &TTLMap[K, V]{
		data:    make(map[K]V),
		expires: make(map[K]time.Time),
		ttl:     ttl,
		now:     now,
	}
}

// Get retrieves a value from the map.
// Returns the value and whether it exists and has not expired.
func (m *TTLMap[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	value, exists := m.data[key]
	expires := m.expires[key]
	m.mu.RUnlock()

	if !exists {
		var zero V
		return zero, false
	}

	if !m.now().Before(expires) {
		m.Delete(key)
		var zero V
		return zero, false
	}

	return value, true
}

// Expiry returns when the key expires.
func (m *TTLMap[K, V]) Expiry(key K) (time.Time, bool) {
	if _, ok := m.Get(key); !ok {
		return time.Time{}, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.expires[key], true
}

// Set adds or updates a value using the default TTL.
func (m *TTLMap[K, V]) Set(key K, value V) {
	m.SetFor(key, value, m.ttl)
}

// SetFor adds or updates a value with an explicit TTL.
func (m *TTLMap[K, V]) SetFor(key K, value V, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	m.expires[key] = m.now().Add(ttl)
}

// Delete removes a key from the map.
func (m *TTLMap[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	delete(m.expires, key)
}

// Len returns the number of live entries.
func (m *TTLMap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	count := 0
	for _, expires := range m.expires {
		if now.Before(expires) {
			count++
		}
	}
	return count
}

// Sweep removes every expired entry and returns how many were dropped.
func (m *TTLMap[K, V]) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, expires := range m.expires {
		if !now.Before(expires) {
			delete(m.data, key)
			delete(m.expires, key)
			removed++
		}
	}
	return removed
}
