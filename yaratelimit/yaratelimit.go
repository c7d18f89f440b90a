// Package yaratelimit implements a fixed-window rate limiter backed by a
// yacache.Cache. It keeps a per-(id, group) counter together with the unix
// millisecond timestamp of the first hit of the current window.
//
// # Storage layout
//
//	rate-limit-<id>-<group> -> "<count>,<first_unix_ms>"
//
// Keys expire together with their window, so idle subjects cost nothing.
//
// # Semantics
//
//   - Reserve(ctx, id, group) -> (wait, err)
//
//     Takes one slot in the current window and returns zero, or returns how
//     long the caller has to wait before a slot frees up. Nothing is taken
//     when wait > 0.
//
//   - Increment(ctx, id, group) -> (banned, err)
//
//     Counts a hit and reports whether the subject reached the limit.
//
//   - Get / Refresh read and reset the window.
package yaratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yacache"
	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
)

// Storage is the parsed window value.
type Storage struct {
	// Count is the number of hits in the current window.
	Count uint8
	// FirstRequest is the unix millisecond timestamp opening the window.
	FirstRequest int64
}

// RateLimit is a fixed-window limiter. Use NewRateLimit.
type RateLimit[Cache yacache.Container] struct {
	Cache yacache.Cache[Cache]
	// Limit is the max allowed hits per window.
	Limit uint8
	// Rate is the window size.
	Rate time.Duration

	mu  sync.Mutex
	now func() time.Time
}

// NewRateLimit wires dependencies and returns a ready-to-use limiter.
//
// Example:
//
//	cache := yacache.NewCache(yacache.NewMemoryContainer())
//	rl := yaratelimit.NewRateLimit(cache, 20, time.Minute)
//	wait, err := rl.Reserve(ctx, chatID, "group")
func NewRateLimit[Cache yacache.Container](
	cache yacache.Cache[Cache],
	limit uint8,
	rate time.Duration,
) *RateLimit[Cache] {
	return &RateLimit[Cache]{
		Limit: max(limit, 1),
		Rate:  rate,
		Cache: cache,
		now:   time.Now,
	}
}

// Reserve takes a slot in the current window. When the window is full it
// returns the time left until the window closes and takes nothing.
//
// Example:
//
//	for {
//	    wait, err := rl.Reserve(ctx, chatID, "private")
//	    if err != nil || wait == 0 {
//	        break
//	    }
//	    time.Sleep(wait)
//	}
func (r *RateLimit[Cache]) Reserve(
	ctx context.Context,
	id int64,
	group string,
) (time.Duration, yaerrors.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()

	storage, err := r.Get(ctx, id, group)
	if err != nil {
		if !errors.Is(err, yacache.ErrKeyNotFound) {
			return 0, err.Wrap("failed to reserve slot")
		}

		return 0, r.write(ctx, id, group, Storage{Count: 1, FirstRequest: now.UnixMilli()})
	}

	windowEnd := time.UnixMilli(storage.FirstRequest).Add(r.Rate)

	if !now.Before(windowEnd) {
		return 0, r.write(ctx, id, group, Storage{Count: 1, FirstRequest: now.UnixMilli()})
	}

	if storage.Count >= r.Limit {
		return windowEnd.Sub(now), nil
	}

	storage.Count++

	return 0, r.write(ctx, id, group, *storage)
}

// Increment records a hit for (id, group) and reports whether the subject
// is over the limit after this hit.
func (r *RateLimit[Cache]) Increment(
	ctx context.Context,
	id int64,
	group string,
) (bool, yaerrors.Error) {
	wait, err := r.Reserve(ctx, id, group)
	if err != nil {
		return false, err.Wrap("failed to increment")
	}

	if wait > 0 {
		return true, nil
	}

	storage, err := r.Get(ctx, id, group)
	if err != nil {
		return false, err.Wrap("failed to read window after increment")
	}

	return storage.Count >= r.Limit, nil
}

// Refresh resets the window for (id, group) to count=1 at the current time.
func (r *RateLimit[Cache]) Refresh(
	ctx context.Context,
	id int64,
	group string,
) yaerrors.Error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.write(ctx, id, group, Storage{Count: 1, FirstRequest: r.clock().UnixMilli()})
}

// Get fetches and parses the window of (id, group).
func (r *RateLimit[Cache]) Get(
	ctx context.Context,
	id int64,
	group string,
) (*Storage, yaerrors.Error) {
	value, yaerr := r.Cache.Get(ctx, FormatKey(id, group))
	if yaerr != nil {
		return nil, yaerr.Wrap("failed to get storage")
	}

	count, first, found := strings.Cut(value, ",")
	if !found {
		return nil, yaerrors.FromString(
			http.StatusInternalServerError,
			"malformed rate limit value: "+value,
		)
	}

	limit, err := strconv.ParseUint(count, 10, 8)
	if err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			"couldn't parse window count",
		)
	}

	firstRequest, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			"couldn't parse window start",
		)
	}

	return &Storage{
		Count:        uint8(limit),
		FirstRequest: firstRequest,
	}, nil
}

func (r *RateLimit[Cache]) write(ctx context.Context, id int64, group string, storage Storage) yaerrors.Error {
	if err := r.Cache.Set(
		ctx,
		FormatKey(id, group),
		FormatValue(storage.Count, storage.FirstRequest),
		r.Rate,
	); err != nil {
		return err.Wrap("failed to write rate limit window")
	}

	return nil
}

func (r *RateLimit[Cache]) clock() time.Time {
	if r.now == nil {
		return time.Now()
	}

	return r.now()
}

// FormatKey constructs the cache key for (id, group).
//
// Example:
//
//	k := yaratelimit.FormatKey(-100, "group") // "rate-limit--100-group"
func FormatKey(id int64, group string) string {
	return fmt.Sprintf("rate-limit-%d-%s", id, group)
}

// FormatValue serializes a (count, first_unix_ms) tuple.
func FormatValue(count uint8, firstRequest int64) string {
	return fmt.Sprintf("%d,%d", count, firstRequest)
}
