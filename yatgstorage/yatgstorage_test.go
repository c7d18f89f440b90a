package yatgstorage_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yacache"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

const (
	botID  = 1000
	secret = "123456789:ABCDFEG"
)

var profile = yatgstorage.Profile{
	ID:           42,
	Username:     "ann",
	FirstName:    "Ann",
	LanguageCode: "en",
}

func newMockDB(t *testing.T) *gorm.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite in memory")
	}

	// every new connection to :memory: is a different database
	sqlDB.SetMaxOpenConns(1)

	poolDB, err := gorm.Open(
		gorm.Dialector(
			sqlite.Dialector{
				Conn:       sqlDB,
				DriverName: "sqlite",
			},
		), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory database: %v", err)
	}

	return poolDB
}

func newRedisCache(t *testing.T) yacache.Cache[*redis.Client] {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		_ = client.Close()

		mr.Close()
	})

	return yacache.NewCache(client)
}

func exerciseUserStorage(t *testing.T, storage yatgstorage.UserStorage) {
	t.Helper()

	ctx := context.Background()

	t.Run("[GetOrCreate] - creates defaults", func(t *testing.T) {
		record, err := storage.GetOrCreate(ctx, botID, profile)
		require.NoError(t, err)

		assert.Equal(t, int64(botID), record.BotID)
		assert.Equal(t, profile.ID, record.ID)
		assert.Equal(t, "ann", record.Username)
		assert.Equal(t, "en", record.Language())
		assert.Empty(t, record.State)
		assert.NotNil(t, record.Data)
	})

	t.Run("[GetOrCreate] - returns a private copy", func(t *testing.T) {
		record, err := storage.GetOrCreate(ctx, botID, profile)
		require.NoError(t, err)

		record.Set("draft", "lost")

		again, err := storage.GetOrCreate(ctx, botID, profile)
		require.NoError(t, err)

		_, ok := again.Get("draft")
		assert.False(t, ok)
	})

	t.Run("[Save] - persists changes", func(t *testing.T) {
		record, err := storage.GetOrCreate(ctx, botID, profile)
		require.NoError(t, err)

		record.Increment("hits", 2)
		record.State = "menu"
		record.SelectedLanguage = "ru"

		require.NoError(t, storage.Save(ctx, record))

		again, err := storage.GetOrCreate(ctx, botID, profile)
		require.NoError(t, err)

		assert.Equal(t, int64(2), again.GetInt("hits"))
		assert.Equal(t, "menu", again.State)
		assert.Equal(t, "ru", again.Language())
	})

	t.Run("[GetOrCreate] - records are scoped per bot", func(t *testing.T) {
		record, err := storage.GetOrCreate(ctx, botID+1, profile)
		require.NoError(t, err)

		assert.Equal(t, int64(botID+1), record.BotID)
		assert.Empty(t, record.State)
	})

	t.Run("[GetOrCreate] - zero sender rejected", func(t *testing.T) {
		_, err := storage.GetOrCreate(ctx, botID, yatgstorage.Profile{})

		assert.ErrorIs(t, err, yatgstorage.ErrInvalidSender)
	})

	t.Run("[GetOrCreate] - concurrent first sight creates one record", func(t *testing.T) {
		fresh := yatgstorage.Profile{ID: 777, FirstName: "Bob"}

		var wg sync.WaitGroup

		for range 8 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				record, err := storage.GetOrCreate(ctx, botID, fresh)
				if assert.NoError(t, err) {
					assert.Equal(t, int64(777), record.ID)
				}
			}()
		}

		wg.Wait()

		record, err := storage.GetOrCreate(ctx, botID, fresh)
		require.NoError(t, err)

		record.Set("seen", "yes")
		require.NoError(t, storage.Save(ctx, record))

		again, err := storage.GetOrCreate(ctx, botID, fresh)
		require.NoError(t, err)

		value, _ := again.Get("seen")
		assert.Equal(t, "yes", value)
	})
}

func TestMemoryUserStorage_Works(t *testing.T) {
	t.Parallel()

	storage := yatgstorage.NewMemoryUserStorage()

	exerciseUserStorage(t, storage)

	assert.Equal(t, 3, storage.Len())

	require.NoError(t, storage.Close())

	_, err := storage.GetOrCreate(context.Background(), botID, profile)
	assert.ErrorIs(t, err, yatgstorage.ErrStorageClosed)
}

func TestGormUserStorage_Works(t *testing.T) {
	t.Parallel()

	poolDB := newMockDB(t)

	storage, err := yatgstorage.NewGormUserStorage(poolDB)
	require.NoError(t, err)

	assert.True(t, poolDB.Migrator().HasTable(&yatgstorage.UserRecord{}))

	exerciseUserStorage(t, storage)

	var count int64

	require.NoError(t, poolDB.Model(&yatgstorage.UserRecord{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	require.NoError(t, storage.Close())
}

func TestCacheUserStorage_Memory(t *testing.T) {
	t.Parallel()

	cache := yacache.NewCache(yacache.NewMemoryContainer())

	exerciseUserStorage(t, yatgstorage.NewCacheUserStorage(cache))
}

func TestCacheUserStorage_RedisEncrypted(t *testing.T) {
	t.Parallel()

	cache := newRedisCache(t)

	storage := yatgstorage.NewCacheUserStorage(cache, yatgstorage.WithEncryption[*redis.Client](secret))

	exerciseUserStorage(t, storage)

	t.Run("[Decode] - wrong secret is rejected", func(t *testing.T) {
		other := yatgstorage.NewCacheUserStorage(cache, yatgstorage.WithEncryption[*redis.Client]("other"))

		_, err := other.GetOrCreate(context.Background(), botID, profile)

		assert.ErrorIs(t, err, yatgstorage.ErrCorruptedRecord)
	})
}

func TestOffsetStorage_Works(t *testing.T) {
	t.Parallel()

	storages := map[string]yatgstorage.OffsetStorage{
		"memory": yatgstorage.NewMemoryOffsetStorage(),
		"cache":  yatgstorage.NewCacheOffsetStorage(yacache.NewCache(yacache.NewMemoryContainer())),
		"redis":  yatgstorage.NewCacheOffsetStorage(newRedisCache(t)),
	}

	for name, storage := range storages {
		t.Run("[Offset] - "+name, func(t *testing.T) {
			ctx := context.Background()

			offset, err := storage.LoadOffset(ctx, botID)
			require.NoError(t, err)
			assert.Zero(t, offset)

			require.NoError(t, storage.StoreOffset(ctx, botID, 1001))

			offset, err = storage.LoadOffset(ctx, botID)
			require.NoError(t, err)
			assert.Equal(t, int64(1001), offset)

			offset, err = storage.LoadOffset(ctx, botID+1)
			require.NoError(t, err)
			assert.Zero(t, offset)
		})
	}
}

func TestAES_Works(t *testing.T) {
	t.Parallel()

	sealer := yatgstorage.NewAES(secret)

	sealed, err := sealer.Encrypt([]byte("stolyarovtop"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "stolyarovtop")

	plain, err := sealer.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "stolyarovtop", string(plain))

	sealed[len(sealed)-1] ^= 0xff

	_, err = sealer.Decrypt(sealed)
	assert.ErrorIs(t, err, yatgstorage.ErrCorruptedRecord)
}

func TestUserRecord_Clone(t *testing.T) {
	t.Parallel()

	record := yatgstorage.NewUserRecord(botID, profile, time.Now())
	record.Set("a", "1")

	clone := record.Clone()
	clone.Set("a", "2")
	clone.Delete("missing")

	value, _ := record.Get("a")
	assert.Equal(t, "1", value)
}
