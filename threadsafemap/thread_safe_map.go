// Package threadsafemap provides a generic map guarded by a sync.RWMutex.
package threadsafemap

import (
	"maps"
	"sync"
)

// ThreadSafeMap is a generic map implementation that supports concurrent read and write operations safely.
// The zero value is ready to use.
type ThreadSafeMap[K comparable, V any] struct {
	data map[K]V
	mu   sync.RWMutex
}

// NewThreadSafeMap returns a new instance of a thread-safe map with initialized internal storage.
func NewThreadSafeMap[K comparable, V any]() *ThreadSafeMap[K, V] {
	return &ThreadSafeMap[K, V]{
		data: make(map[K]V),
	}
}

// Copy returns a snapshot of the map content.
func (m *ThreadSafeMap[K, V]) Copy() map[K]V {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return maps.Clone(m.data)
}

// Delete removes the specified key from the map if it exists.
func (m *ThreadSafeMap[K, V]) Delete(key K) {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
}

// Get retrieves the value for a key and a boolean indicating whether it was found.
func (m *ThreadSafeMap[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	val, exists := m.data[key]
	m.mu.RUnlock()

	return val, exists
}

// GetOrSet returns the existing value for key if present (loaded == true).
// Otherwise it stores value and returns it.
//
// Example usage:
//
//	record, loaded := records.GetOrSet(senderID, newRecord)
func (m *ThreadSafeMap[K, V]) GetOrSet(key K, value V) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.safetyCheck()

	if existing, ok := m.data[key]; ok {
		return existing, true
	}

	m.data[key] = value

	return value, false
}

// Has reports whether key is present.
func (m *ThreadSafeMap[K, V]) Has(key K) bool {
	_, ok := m.Get(key)

	return ok
}

// Keys returns the keys in unspecified order.
func (m *ThreadSafeMap[K, V]) Keys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]K, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}

	return keys
}

// Length returns the number of entries.
func (m *ThreadSafeMap[K, V]) Length() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}

// Pop removes key and returns its previous value.
func (m *ThreadSafeMap[K, V]) Pop(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	val, ok := m.data[key]
	if ok {
		delete(m.data, key)
	}

	return val, ok
}

// Set stores value under key.
func (m *ThreadSafeMap[K, V]) Set(key K, value V) {
	m.mu.Lock()
	m.safetyCheck()
	m.data[key] = value
	m.mu.Unlock()
}

// Update atomically replaces the value of key with fn(old, exists) and returns it.
//
// Example usage:
//
//	hits := counters.Update(chatID, func(old int, _ bool) int { return old + 1 })
func (m *ThreadSafeMap[K, V]) Update(key K, fn func(old V, exists bool) V) V {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.safetyCheck()

	old, exists := m.data[key]
	value := fn(old, exists)
	m.data[key] = value

	return value
}

// Compute is Update where fn also decides whether the key stays in the map.
// When keep is false the key is deleted.
func (m *ThreadSafeMap[K, V]) Compute(key K, fn func(old V, exists bool) (value V, keep bool)) V {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.safetyCheck()

	old, exists := m.data[key]

	value, keep := fn(old, exists)
	if keep {
		m.data[key] = value
	} else {
		delete(m.data, key)
	}

	return value
}

// Values returns the values in unspecified order.
func (m *ThreadSafeMap[K, V]) Values() []V {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values := make([]V, 0, len(m.data))
	for _, v := range m.data {
		values = append(values, v)
	}

	return values
}
