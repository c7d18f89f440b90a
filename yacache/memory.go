package yacache

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
)

type memoryCacheItem struct {
	value     string
	expiresAt time.Time
}

func (m *memoryCacheItem) isExpired(now time.Time) bool {
	return !m.expiresAt.IsZero() && !now.Before(m.expiresAt)
}

// MemoryContainer is the backing store of the in-memory cache.
type MemoryContainer struct {
	Map map[string]*memoryCacheItem
}

// NewMemoryContainer allocates an empty MemoryContainer.
func NewMemoryContainer() MemoryContainer {
	return MemoryContainer{Map: make(map[string]*memoryCacheItem)}
}

// Memory is the in-memory Cache implementation. Expired keys are invisible to
// readers immediately and physically removed by a background sweeper.
type Memory struct {
	mutex  sync.RWMutex
	inner  MemoryContainer
	done   chan struct{}
	closed bool
}

// NewMemory wraps data and starts a sweeper running every tickToClean.
//
// Example:
//
//	memory := yacache.NewMemory(yacache.NewMemoryContainer(), time.Minute)
//	defer memory.Close()
func NewMemory(data MemoryContainer, tickToClean time.Duration) *Memory {
	if data.Map == nil {
		data.Map = make(map[string]*memoryCacheItem)
	}

	if tickToClean <= 0 {
		tickToClean = DefaultCleanupInterval
	}

	memory := &Memory{
		inner: data,
		done:  make(chan struct{}),
	}

	go memory.cleanup(tickToClean)

	return memory
}

func (m *Memory) cleanup(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.mutex.Lock()

			for key, item := range m.inner.Map {
				if item.isExpired(now) {
					delete(m.inner.Map, key)
				}
			}

			m.mutex.Unlock()
		}
	}
}

// Raw returns the container. Access to it is not synchronised.
func (m *Memory) Raw() MemoryContainer {
	return m.inner
}

func (m *Memory) Get(_ context.Context, key string) (string, yaerrors.Error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	item, ok := m.inner.Map[key]
	if !ok || item.isExpired(time.Now()) {
		return "", yaerrors.FromError(http.StatusNotFound, ErrKeyNotFound, "[MEMORY] failed to get "+key)
	}

	return item.value, nil
}

func (m *Memory) Set(_ context.Context, key string, value string, ttl time.Duration) yaerrors.Error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return yaerrors.FromError(http.StatusServiceUnavailable, ErrCacheClosed, "[MEMORY] failed to set "+key)
	}

	m.inner.Map[key] = newMemoryCacheItem(value, ttl)

	return nil
}

func (m *Memory) SetNX(
	_ context.Context,
	key string,
	value string,
	ttl time.Duration,
) (bool, yaerrors.Error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return false, yaerrors.FromError(http.StatusServiceUnavailable, ErrCacheClosed, "[MEMORY] failed to setnx "+key)
	}

	if item, ok := m.inner.Map[key]; ok && !item.isExpired(time.Now()) {
		return false, nil
	}

	m.inner.Map[key] = newMemoryCacheItem(value, ttl)

	return true, nil
}

func (m *Memory) Exists(_ context.Context, keys ...string) (bool, yaerrors.Error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	now := time.Now()

	for _, key := range keys {
		item, ok := m.inner.Map[key]
		if !ok || item.isExpired(now) {
			return false, nil
		}
	}

	return true, nil
}

func (m *Memory) Del(_ context.Context, key string) yaerrors.Error {
	m.mutex.Lock()
	delete(m.inner.Map, key)
	m.mutex.Unlock()

	return nil
}

func (m *Memory) Ping(_ context.Context) yaerrors.Error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.closed {
		return yaerrors.FromError(http.StatusServiceUnavailable, ErrCacheClosed, "[MEMORY] ping failed")
	}

	return nil
}

// Close stops the sweeper. Further writes fail with ErrCacheClosed.
func (m *Memory) Close() yaerrors.Error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}

	return nil
}

func newMemoryCacheItem(value string, ttl time.Duration) *memoryCacheItem {
	item := &memoryCacheItem{value: value}

	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}

	return item
}
