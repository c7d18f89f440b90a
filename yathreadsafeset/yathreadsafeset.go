// Package yathreadsafeset provides a generic set guarded by a sync.RWMutex.
package yathreadsafeset

import "sync"

// ThreadSafeSet is a set of comparable values safe for concurrent use.
// The zero value is ready to use.
type ThreadSafeSet[K comparable] struct {
	data map[K]struct{}
	mu   sync.RWMutex
}

// NewThreadSafeSet returns an empty set.
//
// Example usage:
//
//	tokens := yathreadsafeset.NewThreadSafeSet[string]()
func NewThreadSafeSet[K comparable]() *ThreadSafeSet[K] {
	return &ThreadSafeSet[K]{data: make(map[K]struct{})}
}

// Set adds value to the set.
func (s *ThreadSafeSet[K]) Set(value K) {
	s.TrySet(value)
}

// TrySet adds value and reports whether it was absent before.
//
// Example usage:
//
//	if !tokens.TrySet(token) {
//	    // already registered
//	}
func (s *ThreadSafeSet[K]) TrySet(value K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[K]struct{})
	}

	if _, ok := s.data[value]; ok {
		return false
	}

	s.data[value] = struct{}{}

	return true
}

// Has reports whether value is in the set.
func (s *ThreadSafeSet[K]) Has(value K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[value]

	return ok
}

// Delete removes value from the set.
func (s *ThreadSafeSet[K]) Delete(value K) {
	s.mu.Lock()
	delete(s.data, value)
	s.mu.Unlock()
}

// Length returns the number of values.
func (s *ThreadSafeSet[K]) Length() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data)
}

// Values returns the values in unspecified order.
func (s *ThreadSafeSet[K]) Values() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([]K, 0, len(s.data))
	for v := range s.data {
		values = append(values, v)
	}

	return values
}
