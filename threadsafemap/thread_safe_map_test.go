package threadsafemap_test

import (
	"sync"
	"testing"

	"github.com/YaCodeDev/GoYaTgBot/threadsafemap"
	"github.com/stretchr/testify/assert"
)

func TestThreadSafeMap_Basic(t *testing.T) {
	t.Parallel()

	var m threadsafemap.ThreadSafeMap[string, int]

	m.Set("a", 1)

	value, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, value)

	value, loaded := m.GetOrSet("a", 5)
	assert.True(t, loaded)
	assert.Equal(t, 1, value)

	value, loaded = m.GetOrSet("b", 5)
	assert.False(t, loaded)
	assert.Equal(t, 5, value)

	assert.ElementsMatch(t, []string{"a", "b"}, m.Keys())

	popped, ok := m.Pop("b")
	assert.True(t, ok)
	assert.Equal(t, 5, popped)
	assert.Equal(t, 1, m.Length())
}

func TestThreadSafeMap_ConcurrentUpdate(t *testing.T) {
	t.Parallel()

	m := threadsafemap.NewThreadSafeMap[int64, int]()

	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			m.Update(7, func(old int, _ bool) int { return old + 1 })
		}()
	}

	wg.Wait()

	value, _ := m.Get(7)
	assert.Equal(t, 100, value)
}

func TestThreadSafeMap_Compute(t *testing.T) {
	t.Parallel()

	m := threadsafemap.NewThreadSafeMap[string, int]()

	m.Compute("x", func(old int, _ bool) (int, bool) { return old + 2, true })
	assert.True(t, m.Has("x"))

	m.Compute("x", func(old int, _ bool) (int, bool) { return old - 2, old-2 > 0 })
	assert.False(t, m.Has("x"))
}
