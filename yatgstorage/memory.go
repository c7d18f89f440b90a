package yatgstorage

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/threadsafemap"
	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
)

type recordKey struct {
	botID    int64
	senderID int64
}

// MemoryUserStorage keeps records in process memory.
type MemoryUserStorage struct {
	records *threadsafemap.ThreadSafeMap[recordKey, *UserRecord]
	closed  atomic.Bool
}

// NewMemoryUserStorage returns an empty in-memory user store.
func NewMemoryUserStorage() *MemoryUserStorage {
	return &MemoryUserStorage{
		records: threadsafemap.NewThreadSafeMap[recordKey, *UserRecord](),
	}
}

func (m *MemoryUserStorage) GetOrCreate(
	_ context.Context,
	botID int64,
	profile Profile,
) (*UserRecord, yaerrors.Error) {
	if m.closed.Load() {
		return nil, yaerrors.FromError(http.StatusServiceUnavailable, ErrStorageClosed, "[MEMORY] failed to get user")
	}

	if profile.ID == 0 {
		return nil, yaerrors.FromError(http.StatusBadRequest, ErrInvalidSender, "[MEMORY] failed to get user")
	}

	now := time.Now()

	record := m.records.Update(
		recordKey{botID: botID, senderID: profile.ID},
		func(old *UserRecord, exists bool) *UserRecord {
			if !exists {
				return NewUserRecord(botID, profile, now)
			}

			return old
		},
	)

	return record.Clone(), nil
}

func (m *MemoryUserStorage) Save(_ context.Context, record *UserRecord) yaerrors.Error {
	if m.closed.Load() {
		return yaerrors.FromError(http.StatusServiceUnavailable, ErrStorageClosed, "[MEMORY] failed to save user")
	}

	if record == nil || record.ID == 0 {
		return yaerrors.FromError(http.StatusBadRequest, ErrInvalidSender, "[MEMORY] failed to save user")
	}

	m.records.Set(recordKey{botID: record.BotID, senderID: record.ID}, record.Clone())

	return nil
}

// Len returns the number of stored records.
func (m *MemoryUserStorage) Len() int {
	return m.records.Length()
}

func (m *MemoryUserStorage) Close() yaerrors.Error {
	m.closed.Store(true)

	return nil
}

// MemoryOffsetStorage keeps polling offsets in process memory.
type MemoryOffsetStorage struct {
	offsets threadsafemap.ThreadSafeMap[int64, int64]
}

// NewMemoryOffsetStorage returns an empty in-memory offset store.
func NewMemoryOffsetStorage() *MemoryOffsetStorage {
	return &MemoryOffsetStorage{}
}

func (m *MemoryOffsetStorage) LoadOffset(_ context.Context, botID int64) (int64, yaerrors.Error) {
	offset, _ := m.offsets.Get(botID)

	return offset, nil
}

func (m *MemoryOffsetStorage) StoreOffset(_ context.Context, botID int64, offset int64) yaerrors.Error {
	m.offsets.Set(botID, offset)

	return nil
}
