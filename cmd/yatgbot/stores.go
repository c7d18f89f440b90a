package main

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// Pure Go driver registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/YaCodeDev/GoYaTgBot/config"
	"github.com/YaCodeDev/GoYaTgBot/yacache"
	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
)

// stores are the user and offset stores of one bot.
type stores struct {
	users   yatgstorage.UserStorage
	offsets yatgstorage.OffsetStorage
}

// openStores builds the stores selected by bot.Store. Offsets of a bot with
// a sqlite store stay in memory; redis bots keep them in redis.
func openStores(
	bot config.BotConfig,
	settings config.Settings,
	log yalogger.Logger,
) (stores, yaerrors.Error) {
	switch bot.Store.Kind {
	case config.StoreSQLite:
		poolDB, err := gorm.Open(
			sqlite.Dialector{DriverName: "sqlite", DSN: bot.Store.DSN},
			&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)},
		)
		if err != nil {
			return stores{}, yaerrors.FromErrorWithLog(
				http.StatusInternalServerError,
				err,
				fmt.Sprintf("failed to open sqlite %s", bot.Store.DSN),
				log,
			)
		}

		users, yaErr := yatgstorage.NewGormUserStorage(poolDB)
		if yaErr != nil {
			return stores{}, yaErr.Wrap("failed to open user store")
		}

		return stores{users: users, offsets: yatgstorage.NewMemoryOffsetStorage()}, nil
	case config.StoreRedis:
		client, err := yacache.NewRedisClient(
			settings.RedisHost,
			settings.RedisPort,
			settings.RedisPassword,
			settings.RedisDB,
			log,
		)
		if err != nil {
			return stores{}, err.Wrap("failed to open user store")
		}

		cache := yacache.NewCache(client)

		var opts []yatgstorage.CacheOption[*redis.Client]
		if bot.Store.Secret != "" {
			opts = append(opts, yatgstorage.WithEncryption[*redis.Client](bot.Store.Secret))
		}

		return stores{
			users:   yatgstorage.NewCacheUserStorage(cache, opts...),
			offsets: yatgstorage.NewCacheOffsetStorage(cache),
		}, nil
	default:
		return stores{
			users:   yatgstorage.NewMemoryUserStorage(),
			offsets: yatgstorage.NewMemoryOffsetStorage(),
		}, nil
	}
}
