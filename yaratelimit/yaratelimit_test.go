package yaratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yacache"
	"github.com/YaCodeDev/GoYaTgBot/yaratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserve_Works(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cache := yacache.NewCache(yacache.NewMemoryContainer())
	defer cache.Close()

	t.Run("[Reserve] - slots inside limit", func(t *testing.T) {
		rl := yaratelimit.NewRateLimit(cache, 3, time.Minute)

		for range 3 {
			wait, err := rl.Reserve(ctx, 100, "inside")

			require.NoError(t, err)
			assert.Zero(t, wait)
		}

		storage, err := rl.Get(ctx, 100, "inside")
		require.NoError(t, err)
		assert.Equal(t, uint8(3), storage.Count)
	})

	t.Run("[Reserve] - full window asks to wait", func(t *testing.T) {
		rl := yaratelimit.NewRateLimit(cache, 1, time.Minute)

		wait, err := rl.Reserve(ctx, -200, "full")
		require.NoError(t, err)
		assert.Zero(t, wait)

		wait, err = rl.Reserve(ctx, -200, "full")
		require.NoError(t, err)
		assert.Greater(t, wait, time.Duration(0))
		assert.LessOrEqual(t, wait, time.Minute)
	})

	t.Run("[Reserve] - new window after rate", func(t *testing.T) {
		rl := yaratelimit.NewRateLimit(cache, 1, 20*time.Millisecond)

		_, _ = rl.Reserve(ctx, 300, "window")

		time.Sleep(30 * time.Millisecond)

		wait, err := rl.Reserve(ctx, 300, "window")
		require.NoError(t, err)
		assert.Zero(t, wait)
	})
}

func TestIncrement_Works(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cache := yacache.NewCache(yacache.NewMemoryContainer())
	defer cache.Close()

	rl := yaratelimit.NewRateLimit(cache, 2, time.Minute)

	banned, err := rl.Increment(ctx, 1, "party")
	require.NoError(t, err)
	assert.False(t, banned)

	banned, _ = rl.Increment(ctx, 1, "party")
	assert.True(t, banned)

	require.NoError(t, rl.Refresh(ctx, 1, "party"))

	value, _ := cache.Get(ctx, yaratelimit.FormatKey(1, "party"))
	assert.Contains(t, value, "1,")
}
