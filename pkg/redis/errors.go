package redis

import "errors"

var (
	ErrNoConnectionURL = errors.New("redis: REDIS_URL is empty")
	ErrInvalidURL      = errors.New("redis: cannot parse connection URL")
	ErrNotReady        = errors.New("redis: server did not answer before the connect budget ran out")
	ErrNotWritable     = errors.New("redis: server refuses writes, pending selections cannot be stored")
)
