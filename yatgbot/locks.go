package yatgbot

import (
	"sync"

	"github.com/YaCodeDev/GoYaTgBot/threadsafemap"
)

type senderLock struct {
	mu   sync.Mutex
	refs int
}

// senderLocks serializes dispatches per sender. Entries live only while
// someone holds or waits for them.
type senderLocks struct {
	locks threadsafemap.ThreadSafeMap[int64, *senderLock]
}

// lock blocks until the caller owns senderID and returns the release func.
func (s *senderLocks) lock(senderID int64) func() {
	entry := s.locks.Compute(senderID, func(old *senderLock, exists bool) (*senderLock, bool) {
		if !exists {
			old = &senderLock{}
		}

		old.refs++

		return old, true
	})

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		s.locks.Compute(senderID, func(old *senderLock, _ bool) (*senderLock, bool) {
			old.refs--

			return old, old.refs > 0
		})
	}
}

func (s *senderLocks) len() int {
	return s.locks.Length()
}
