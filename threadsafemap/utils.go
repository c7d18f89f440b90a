package threadsafemap

// safetyCheck lazily allocates the map of a zero value. Callers hold the write lock.
func (m *ThreadSafeMap[K, V]) safetyCheck() {
	if m.data == nil {
		m.data = make(map[K]V)
	}
}
