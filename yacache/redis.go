package yacache

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/redis/go-redis/v9"
)

// Redis is the Cache implementation backed by go-redis.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	cache := yacache.NewRedis(client)
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// NewRedisClient dials Redis and performs an initial PING.
//
// A failed PING is returned as an error rather than terminating the process,
// so one bot with a broken store does not take the others down.
//
// Example:
//
//	client, err := yacache.NewRedisClient("127.0.0.1", 6379, "", 0, log)
func NewRedisClient(
	host string,
	port uint16,
	password string,
	db int,
	log yalogger.Logger,
) (*redis.Client, yaerrors.Error) {
	redisAddr := net.JoinHostPort(host, strconv.Itoa(int(port)))

	log.Infof("Redis connecting to addr %s", redisAddr)

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, yaerrors.FromErrorWithLog(
			http.StatusServiceUnavailable,
			errors.Join(ErrRedisFailure, err),
			"failed to connect redis at "+redisAddr,
			log,
		)
	}

	log.Infof("Redis connected to addr %s", redisAddr)

	return client, nil
}

// Raw exposes the underlying *redis.Client.
func (r *Redis) Raw() *redis.Client {
	return r.client
}

func (r *Redis) Get(ctx context.Context, key string) (string, yaerrors.Error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", yaerrors.FromError(http.StatusNotFound, ErrKeyNotFound, "[REDIS] failed to get "+key)
		}

		return "", wrapRedisError(err, "[REDIS] failed to get "+key)
	}

	return value, nil
}

func (r *Redis) Set(ctx context.Context, key string, value string, ttl time.Duration) yaerrors.Error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return wrapRedisError(err, "[REDIS] failed to set "+key)
	}

	return nil
}

func (r *Redis) SetNX(
	ctx context.Context,
	key string,
	value string,
	ttl time.Duration,
) (bool, yaerrors.Error) {
	created, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, wrapRedisError(err, "[REDIS] failed to setnx "+key)
	}

	return created, nil
}

func (r *Redis) Exists(ctx context.Context, keys ...string) (bool, yaerrors.Error) {
	count, err := r.client.Exists(ctx, keys...).Result()
	if err != nil {
		return false, wrapRedisError(err, "[REDIS] failed to check keys")
	}

	return count == int64(len(keys)), nil
}

func (r *Redis) Del(ctx context.Context, key string) yaerrors.Error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return wrapRedisError(err, "[REDIS] failed to delete "+key)
	}

	return nil
}

func (r *Redis) Ping(ctx context.Context) yaerrors.Error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return wrapRedisError(err, "[REDIS] ping failed")
	}

	return nil
}

func (r *Redis) Close() yaerrors.Error {
	if err := r.client.Close(); err != nil {
		return wrapRedisError(err, "[REDIS] failed to close client")
	}

	return nil
}

func wrapRedisError(err error, msg string) yaerrors.Error {
	return yaerrors.FromError(http.StatusServiceUnavailable, errors.Join(ErrRedisFailure, err), msg)
}
