// Package yacache provides a small key-value cache abstraction with two
// back-ends: an in-memory map guarded by a mutex and a Redis wrapper. Both
// expose the same API so stores built on top of it (user records, polling
// offsets, rate-limit windows) switch back-ends without code changes.
//
// # Quick start (in-memory)
//
//	memory := yacache.NewCache(yacache.NewMemoryContainer())
//	_ = memory.Set(ctx, "offset:42", "1001", 0)
//	value, _ := memory.Get(ctx, "offset:42")
//
// # Quick start (Redis)
//
//	client := yacache.NewRedisClient("localhost", 6379, "", 0, log)
//	redis := yacache.NewCache(client)
//	created, _ := redis.SetNX(ctx, "user:1:42", blob, 0)
//
// A missing key is reported as an Error wrapping ErrKeyNotFound with code 404.
package yacache

import (
	"context"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/redis/go-redis/v9"
)

// Cache is a generic string key-value cache.
//
// T is used by Raw to return the underlying client (*redis.Client or MemoryContainer).
// A zero ttl means the key never expires.
type Cache[T Container] interface {
	// Raw exposes the concrete client for operations outside this API.
	Raw() T

	// Get returns the value of key.
	//
	// Example:
	//
	// 	value, err := c.Get(ctx, "offset:42")
	// 	if errors.Is(err, yacache.ErrKeyNotFound) { ... }
	Get(ctx context.Context, key string) (string, yaerrors.Error)

	// Set stores value under key, replacing any previous value and TTL.
	Set(ctx context.Context, key string, value string, ttl time.Duration) yaerrors.Error

	// SetNX stores value only if key is absent and reports whether it did.
	//
	// Example:
	//
	// 	created, _ := c.SetNX(ctx, "user:1:42", blob, 0)
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, yaerrors.Error)

	// Exists reports whether every key is present.
	Exists(ctx context.Context, keys ...string) (bool, yaerrors.Error)

	// Del removes key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) yaerrors.Error

	// Ping verifies that the back-end is reachable.
	Ping(ctx context.Context) yaerrors.Error

	// Close releases resources held by the back-end.
	Close() yaerrors.Error
}

// Container is the type set of clients the generic cache can wrap.
type Container interface {
	*redis.Client | MemoryContainer
}

// DefaultCleanupInterval is how often the memory back-end sweeps expired keys.
const DefaultCleanupInterval = time.Minute

// NewCache picks the implementation matching the container type.
//
// Example:
//
//	memory := yacache.NewCache(yacache.NewMemoryContainer())
//	redis := yacache.NewCache(redisClient)
func NewCache[T Container](container T) Cache[T] {
	switch typed := any(container).(type) {
	case *redis.Client:
		value, _ := any(NewRedis(typed)).(Cache[T])

		return value
	case MemoryContainer:
		value, _ := any(NewMemory(typed, DefaultCleanupInterval)).(Cache[T])

		return value
	default:
		value, _ := any(NewMemory(NewMemoryContainer(), DefaultCleanupInterval)).(Cache[T])

		return value
	}
}
