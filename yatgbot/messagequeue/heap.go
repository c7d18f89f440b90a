package messagequeue

import (
	"container/heap"
	"context"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
)

// Priorities. Lower values are sent first.
const (
	PriorityHigh   uint16 = 0
	PriorityNormal uint16 = 100
	PriorityLow    uint16 = 200
)

// MessageJob is one outbound call waiting in the queue.
type MessageJob struct {
	ID        uint64
	Priority  uint16
	Timestamp time.Time
	// ChatID and Private select the rate-limit window of the job.
	ChatID  int64
	Private bool
	Run     func(ctx context.Context) yaerrors.Error
	// ResultCh receives exactly one JobResult.
	ResultCh chan JobResult
}

type JobResult struct {
	ID  uint64
	Err yaerrors.Error
}

// messageHeap orders jobs by priority, then by age. Not safe for concurrent use.
type messageHeap struct {
	items jobs
}

type jobs []MessageJob

func (h jobs) Len() int { return len(h) }

func (h jobs) Less(i int, j int) bool {
	if h[i].Priority == h[j].Priority {
		return h[i].Timestamp.Before(h[j].Timestamp)
	}

	return h[i].Priority < h[j].Priority
}

func (h jobs) Swap(i int, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobs) Push(x any) {
	job, ok := x.(MessageJob)
	if !ok {
		return
	}

	*h = append(*h, job)
}

func (h *jobs) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]

	return x
}

func newMessageHeap() messageHeap {
	return messageHeap{}
}

func (m *messageHeap) Len() int {
	return m.items.Len()
}

func (m *messageHeap) Push(job MessageJob) {
	heap.Push(&m.items, job)
}

func (m *messageHeap) Pop() (MessageJob, bool) {
	if m.items.Len() == 0 {
		return MessageJob{}, false
	}

	job, ok := heap.Pop(&m.items).(MessageJob)

	return job, ok
}

// Delete removes the job with id and reports whether it was queued.
func (m *messageHeap) Delete(id uint64) bool {
	for i, job := range m.items {
		if job.ID == id {
			heap.Remove(&m.items, i)

			return true
		}
	}

	return false
}

// DeleteFunc removes every job matching fn and returns the removed jobs.
func (m *messageHeap) DeleteFunc(fn func(MessageJob) bool) []MessageJob {
	var (
		kept    jobs
		removed []MessageJob
	)

	for _, job := range m.items {
		if fn(job) {
			removed = append(removed, job)
		} else {
			kept = append(kept, job)
		}
	}

	m.items = kept
	heap.Init(&m.items)

	return removed
}
