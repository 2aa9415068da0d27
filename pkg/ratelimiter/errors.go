package ratelimiter

import "errors"

var (
	ErrInvalidConfig = errors.New("ratelimiter: invalid bucket configuration")
	ErrEmptyKey      = errors.New("ratelimiter: attempt key is empty")
)
