package yacache

import "errors"

var (
	ErrKeyNotFound  = errors.New("cache: key not found")
	ErrCacheClosed  = errors.New("cache: closed")
	ErrRedisFailure = errors.New("cache: redis command failed")
)
