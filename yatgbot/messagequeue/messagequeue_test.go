package messagequeue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yacache"
	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/YaCodeDev/GoYaTgBot/yaratelimit"
	"github.com/YaCodeDev/GoYaTgBot/yatgbot/messagequeue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_Do(t *testing.T) {
	t.Parallel()

	queue := messagequeue.NewQueue(context.Background(), messagequeue.Options{
		Workers: 2,
		Log:     yalogger.NewTestLogger(),
	})
	defer queue.Close()

	var calls int

	err := queue.Do(context.Background(), 1, true, messagequeue.PriorityNormal, func(context.Context) yaerrors.Error {
		calls++

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestQueue_PriorityOrder(t *testing.T) {
	t.Parallel()

	queue := messagequeue.NewQueue(context.Background(), messagequeue.Options{
		Workers: 1,
		Log:     yalogger.NewTestLogger(),
	})
	defer queue.Close()

	release := make(chan struct{})

	// occupy the single worker so the next jobs pile up in the heap
	_, blocker := queue.AddJob(messagequeue.MessageJob{
		Priority: messagequeue.PriorityHigh,
		Run: func(context.Context) yaerrors.Error {
			<-release

			return nil
		},
	})

	require.Eventually(t, func() bool { return queue.Len() == 0 }, time.Second, time.Millisecond)

	var (
		mu    sync.Mutex
		order []string
	)

	record := func(name string) func(context.Context) yaerrors.Error {
		return func(context.Context) yaerrors.Error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()

			return nil
		}
	}

	_, low := queue.AddJob(messagequeue.MessageJob{Priority: messagequeue.PriorityLow, Run: record("low")})
	_, normal := queue.AddJob(messagequeue.MessageJob{Priority: messagequeue.PriorityNormal, Run: record("normal")})
	_, high := queue.AddJob(messagequeue.MessageJob{Priority: messagequeue.PriorityHigh, Run: record("high")})

	close(release)

	for _, ch := range []<-chan messagequeue.JobResult{blocker, low, normal, high} {
		assert.NoError(t, (<-ch).Err)
	}

	assert.Equal(t, []string{"high", "normal", "low"}, order)
}

func TestQueue_DeleteJob(t *testing.T) {
	t.Parallel()

	queue := messagequeue.NewQueue(context.Background(), messagequeue.Options{
		Workers: 1,
		Log:     yalogger.NewTestLogger(),
	})
	defer queue.Close()

	release := make(chan struct{})
	defer close(release)

	queue.AddJob(messagequeue.MessageJob{Run: func(context.Context) yaerrors.Error {
		<-release

		return nil
	}})

	require.Eventually(t, func() bool { return queue.Len() == 0 }, time.Second, time.Millisecond)

	id, resultCh := queue.AddJob(messagequeue.MessageJob{Run: func(context.Context) yaerrors.Error { return nil }})

	assert.True(t, queue.DeleteJob(id))
	assert.ErrorIs(t, (<-resultCh).Err, messagequeue.ErrJobCanceled)
	assert.False(t, queue.DeleteJob(id))
}

func TestQueue_RateLimitDelays(t *testing.T) {
	t.Parallel()

	cache := yacache.NewCache(yacache.NewMemoryContainer())

	queue := messagequeue.NewQueue(context.Background(), messagequeue.Options{
		Workers: 2,
		Private: yaratelimit.NewRateLimit(cache, 1, 150*time.Millisecond),
		Log:     yalogger.NewTestLogger(),
	})
	defer queue.Close()

	send := func(context.Context) yaerrors.Error { return nil }

	start := time.Now()

	require.NoError(t, queue.Do(context.Background(), 7, true, messagequeue.PriorityNormal, send))
	require.NoError(t, queue.Do(context.Background(), 7, true, messagequeue.PriorityNormal, send))

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestQueue_ClosedRejects(t *testing.T) {
	t.Parallel()

	queue := messagequeue.NewQueue(context.Background(), messagequeue.Options{Log: yalogger.NewTestLogger()})
	queue.Close()

	_, resultCh := queue.AddJob(messagequeue.MessageJob{Run: func(context.Context) yaerrors.Error { return nil }})

	assert.ErrorIs(t, (<-resultCh).Err, messagequeue.ErrQueueClosed)
}
