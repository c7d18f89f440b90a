package yatgstorage

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yacache"
	"github.com/YaCodeDev/GoYaTgBot/yaencoding"
	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
)

// CacheUserStorage stores records as MessagePack blobs in a yacache back-end.
type CacheUserStorage[T yacache.Container] struct {
	cache  yacache.Cache[T]
	sealer *AES
	ttl    time.Duration
}

// CacheOption configures a CacheUserStorage.
type CacheOption[T yacache.Container] func(*CacheUserStorage[T])

// WithEncryption seals every blob with AES-256-GCM derived from secret.
func WithEncryption[T yacache.Container](secret string) CacheOption[T] {
	return func(c *CacheUserStorage[T]) {
		c.sealer = NewAES(secret)
	}
}

// WithTTL expires records not saved for ttl. Zero keeps them forever.
func WithTTL[T yacache.Container](ttl time.Duration) CacheOption[T] {
	return func(c *CacheUserStorage[T]) {
		c.ttl = ttl
	}
}

// NewCacheUserStorage wraps cache.
//
// Example usage:
//
//	client, _ := yacache.NewRedisClient("localhost", 6379, "", 0, log)
//	users := yatgstorage.NewCacheUserStorage(
//		yacache.NewCache(client),
//		yatgstorage.WithEncryption[*redis.Client](secret),
//	)
func NewCacheUserStorage[T yacache.Container](
	cache yacache.Cache[T],
	opts ...CacheOption[T],
) *CacheUserStorage[T] {
	storage := &CacheUserStorage[T]{cache: cache}

	for _, opt := range opts {
		opt(storage)
	}

	return storage
}

// GetOrCreate relies on SetNX so that only the first of several concurrent
// callers writes the default record.
func (c *CacheUserStorage[T]) GetOrCreate(
	ctx context.Context,
	botID int64,
	profile Profile,
) (*UserRecord, yaerrors.Error) {
	if profile.ID == 0 {
		return nil, yaerrors.FromError(http.StatusBadRequest, ErrInvalidSender, "[CACHE] failed to get user")
	}

	key := userKey(botID, profile.ID)

	blob, err := c.cache.Get(ctx, key)
	if err == nil {
		return c.decode(blob, key)
	}

	if !errors.Is(err, yacache.ErrKeyNotFound) {
		return nil, err.Wrap("[CACHE] failed to get user")
	}

	record := NewUserRecord(botID, profile, time.Now())

	encoded, err := c.encode(record)
	if err != nil {
		return nil, err
	}

	created, err := c.cache.SetNX(ctx, key, encoded, c.ttl)
	if err != nil {
		return nil, err.Wrap("[CACHE] failed to create user")
	}

	if created {
		return record, nil
	}

	blob, err = c.cache.Get(ctx, key)
	if err != nil {
		return nil, err.Wrap("[CACHE] failed to get user after race")
	}

	return c.decode(blob, key)
}

func (c *CacheUserStorage[T]) Save(ctx context.Context, record *UserRecord) yaerrors.Error {
	if record == nil || record.ID == 0 {
		return yaerrors.FromError(http.StatusBadRequest, ErrInvalidSender, "[CACHE] failed to save user")
	}

	encoded, err := c.encode(record)
	if err != nil {
		return err
	}

	if err := c.cache.Set(ctx, userKey(record.BotID, record.ID), encoded, c.ttl); err != nil {
		return err.Wrap("[CACHE] failed to save user")
	}

	return nil
}

func (c *CacheUserStorage[T]) Close() yaerrors.Error {
	return c.cache.Close()
}

func (c *CacheUserStorage[T]) encode(record *UserRecord) (string, yaerrors.Error) {
	raw, err := yaencoding.EncodeMessagePack(record)
	if err != nil {
		return "", err.Wrap("[CACHE] failed to encode user")
	}

	if c.sealer != nil {
		raw, err = c.sealer.Encrypt(raw)
		if err != nil {
			return "", err.Wrap("[CACHE] failed to seal user")
		}
	}

	return yaencoding.ToString(raw), nil
}

func (c *CacheUserStorage[T]) decode(blob string, key string) (*UserRecord, yaerrors.Error) {
	raw, err := yaencoding.ToBytes(blob)
	if err != nil {
		return nil, yaerrors.FromError(http.StatusInternalServerError, ErrCorruptedRecord, "[CACHE] "+key)
	}

	if c.sealer != nil {
		raw, err = c.sealer.Decrypt(raw)
		if err != nil {
			return nil, err.Wrap("[CACHE] failed to open " + key)
		}
	}

	record, err := yaencoding.DecodeMessagePack[UserRecord](raw)
	if err != nil {
		return nil, yaerrors.FromError(http.StatusInternalServerError, ErrCorruptedRecord, "[CACHE] "+key)
	}

	if record.Data == nil {
		record.Data = make(map[string]string)
	}

	return record, nil
}

// CacheOffsetStorage stores polling offsets in a yacache back-end.
type CacheOffsetStorage[T yacache.Container] struct {
	cache yacache.Cache[T]
}

// NewCacheOffsetStorage wraps cache.
func NewCacheOffsetStorage[T yacache.Container](cache yacache.Cache[T]) *CacheOffsetStorage[T] {
	return &CacheOffsetStorage[T]{cache: cache}
}

func (c *CacheOffsetStorage[T]) LoadOffset(ctx context.Context, botID int64) (int64, yaerrors.Error) {
	value, err := c.cache.Get(ctx, offsetKey(botID))
	if err != nil {
		if errors.Is(err, yacache.ErrKeyNotFound) {
			return 0, nil
		}

		return 0, err.Wrap("[CACHE] failed to load offset")
	}

	offset, parseErr := strconv.ParseInt(value, 10, 64)
	if parseErr != nil {
		return 0, yaerrors.FromError(http.StatusInternalServerError, parseErr, "[CACHE] invalid offset")
	}

	return offset, nil
}

func (c *CacheOffsetStorage[T]) StoreOffset(ctx context.Context, botID int64, offset int64) yaerrors.Error {
	if err := c.cache.Set(ctx, offsetKey(botID), strconv.FormatInt(offset, 10), 0); err != nil {
		return err.Wrap("[CACHE] failed to store offset")
	}

	return nil
}
