package yathreadsafeset_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/YaCodeDev/GoYaTgBot/yathreadsafeset"
	"github.com/stretchr/testify/assert"
)

func TestThreadSafeSet_Basic(t *testing.T) {
	t.Parallel()

	set := yathreadsafeset.NewThreadSafeSet[string]()

	set.Set("a")

	assert.True(t, set.Has("a"))
	assert.False(t, set.TrySet("a"))
	assert.True(t, set.TrySet("b"))
	assert.ElementsMatch(t, []string{"a", "b"}, set.Values())

	set.Delete("a")

	assert.False(t, set.Has("a"))
	assert.Equal(t, 1, set.Length())
}

func TestThreadSafeSet_TrySetOnce(t *testing.T) {
	t.Parallel()

	var (
		set  yathreadsafeset.ThreadSafeSet[int]
		wins atomic.Int32
		wg   sync.WaitGroup
	)

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if set.TrySet(1) {
				wins.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
