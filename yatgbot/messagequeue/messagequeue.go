// Package messagequeue serializes outbound calls of one bot through a
// priority queue served by a pool of workers.
//
// Before a job runs, the worker takes a slot in the rate-limit window of the
// job's chat (one window for private chats, one for groups). A full window
// delays the job; nothing is dropped and nothing is retried.
package messagequeue

import (
	"context"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
)

// Rate-limit groups.
const (
	GroupPrivate = "private"
	GroupChat    = "chat"
)

// Limiter takes a slot for id, or returns how long to wait for one.
// *yaratelimit.RateLimit satisfies it.
type Limiter interface {
	Reserve(ctx context.Context, id int64, group string) (time.Duration, yaerrors.Error)
}

type Options struct {
	Workers uint
	// Private limits jobs to private chats; nil means unlimited.
	Private Limiter
	// Group limits jobs to groups and channels; nil means unlimited.
	Group Limiter
	Log   yalogger.Logger
}

// Queue is a priority queue of outbound jobs.
type Queue struct {
	heap    messageHeap
	cond    *sync.Cond
	closed  bool
	private Limiter
	group   Limiter
	log     yalogger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewQueue starts the queue loop and opts.Workers workers (at least one).
// They stop when ctx is cancelled or Close is called.
//
// Example usage:
//
//	cache := yacache.NewCache(yacache.NewMemoryContainer())
//
//	queue := messagequeue.NewQueue(ctx, messagequeue.Options{
//		Workers: 4,
//		Private: yaratelimit.NewRateLimit(cache, 1, time.Second),
//		Group:   yaratelimit.NewRateLimit(cache, 20, time.Minute),
//		Log:     log,
//	})
//	defer queue.Close()
func NewQueue(ctx context.Context, opts Options) *Queue {
	ctx, cancel := context.WithCancel(ctx)

	if opts.Log == nil {
		opts.Log = yalogger.NewBaseLogger(nil).NewLogger()
	}

	queue := &Queue{
		heap:    newMessageHeap(),
		cond:    sync.NewCond(&sync.Mutex{}),
		private: opts.Private,
		group:   opts.Group,
		log:     opts.Log,
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := range max(opts.Workers, 1) {
		queue.wg.Add(1)

		go queue.worker(i)
	}

	go func() {
		<-ctx.Done()

		queue.markClosed()
	}()

	return queue
}

// AddJob queues job and returns its id and the channel its result arrives on.
//
// Example usage:
//
//	id, resultCh := queue.AddJob(messagequeue.MessageJob{
//		ChatID:   chatID,
//		Private:  true,
//		Priority: messagequeue.PriorityNormal,
//		Run:      send,
//	})
//
//	result := <-resultCh
func (q *Queue) AddJob(job MessageJob) (uint64, <-chan JobResult) {
	job.ID = rand.Uint64() //nolint:gosec // job ids only need to be distinct
	job.Timestamp = time.Now()
	job.ResultCh = make(chan JobResult, 1)

	if job.Run == nil {
		return job.ID, returnErrorJobResult(
			job.ID,
			yaerrors.FromError(http.StatusInternalServerError, ErrJobNil, "failed to add job"),
		)
	}

	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	if q.closed {
		return job.ID, returnErrorJobResult(
			job.ID,
			yaerrors.FromError(http.StatusServiceUnavailable, ErrQueueClosed, "failed to add job"),
		)
	}

	q.heap.Push(job)
	q.cond.Signal()

	return job.ID, job.ResultCh
}

// Do queues run and waits for it to finish or for ctx to end. run is called
// with ctx, not with the queue context.
func (q *Queue) Do(
	ctx context.Context,
	chatID int64,
	private bool,
	priority uint16,
	run func(ctx context.Context) yaerrors.Error,
) yaerrors.Error {
	id, resultCh := q.AddJob(MessageJob{
		ChatID:   chatID,
		Private:  private,
		Priority: priority,
		Run: func(context.Context) yaerrors.Error {
			return run(ctx)
		},
	})

	select {
	case result := <-resultCh:
		return result.Err
	case <-ctx.Done():
		q.DeleteJob(id)

		return yaerrors.FromError(http.StatusRequestTimeout, ctx.Err(), "job abandoned")
	}
}

// DeleteJob removes a queued job. Its waiter receives ErrJobCanceled.
func (q *Queue) DeleteJob(id uint64) bool {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	removed := q.heap.DeleteFunc(func(job MessageJob) bool { return job.ID == id })
	cancelJobs(removed)

	return len(removed) > 0
}

// DeleteJobFunc removes every queued job matching fn and returns their ids.
//
// Example usage:
//
//	ids := queue.DeleteJobFunc(func(job messagequeue.MessageJob) bool {
//		return job.ChatID == blockedChat
//	})
func (q *Queue) DeleteJobFunc(fn func(MessageJob) bool) []uint64 {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	removed := q.heap.DeleteFunc(fn)
	cancelJobs(removed)

	ids := make([]uint64, 0, len(removed))
	for _, job := range removed {
		ids = append(ids, job.ID)
	}

	return ids
}

// Len returns the number of queued jobs.
func (q *Queue) Len() int {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	return q.heap.Len()
}

// Close stops the workers once their current job is done. Queued jobs are
// answered with ErrJobCanceled.
func (q *Queue) Close() {
	q.cancel()
	q.markClosed()
	q.wg.Wait()

	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	cancelJobs(q.heap.DeleteFunc(func(MessageJob) bool { return true }))
}

func (q *Queue) markClosed() {
	q.cond.L.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.cond.L.Unlock()
}

// next blocks until a job is queued and pops the most urgent one.
// It returns false once the queue is closed.
func (q *Queue) next() (MessageJob, bool) {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	for q.heap.Len() == 0 && !q.closed {
		q.cond.Wait()
	}

	if q.closed {
		return MessageJob{}, false
	}

	return q.heap.Pop()
}

func (q *Queue) worker(id uint) {
	defer q.wg.Done()

	for {
		job, ok := q.next()
		if !ok {
			q.log.Tracef("Queue worker %d stopped", id)

			return
		}

		q.throttle(job)

		job.ResultCh <- JobResult{ID: job.ID, Err: job.Run(q.ctx)}
	}
}

// throttle blocks until the chat of job has a free slot.
func (q *Queue) throttle(job MessageJob) {
	limiter, group := q.group, GroupChat
	if job.Private {
		limiter, group = q.private, GroupPrivate
	}

	if limiter == nil {
		return
	}

	for {
		wait, err := limiter.Reserve(q.ctx, job.ChatID, group)
		if err != nil {
			q.log.Warnf("Rate limiter unavailable, sending unthrottled: %v", err)

			return
		}

		if wait <= 0 {
			return
		}

		timer := time.NewTimer(wait)

		select {
		case <-timer.C:
		case <-q.ctx.Done():
			timer.Stop()

			return
		}
	}
}

func cancelJobs(removed []MessageJob) {
	for _, job := range removed {
		job.ResultCh <- JobResult{
			ID:  job.ID,
			Err: yaerrors.FromError(http.StatusServiceUnavailable, ErrJobCanceled, "job removed from queue"),
		}
	}
}

func returnErrorJobResult(id uint64, err yaerrors.Error) <-chan JobResult {
	resultCh := make(chan JobResult, 1)
	resultCh <- JobResult{ID: id, Err: err}

	return resultCh
}
