// Package ratelimiter throttles repeated attempts, such as coupon codes
// tried against one checkout session, with a token bucket.
package ratelimiter

import (
	"context"
	"errors"
	"fmt"
)

// Limiter decides whether an attempt identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// Bucket is a token bucket Limiter. Every attempt costs one token.
type Bucket struct {
	store Store
	cfg   Config
}

// NewBucket creates a token bucket over store.
func NewBucket(store Store, cfg Config) (*Bucket, error) {
	if store == nil {
		panic("ratelimiter: store cannot be nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Bucket{store: store, cfg: cfg}, nil
}

// Allow spends one token of key's bucket.
func (b *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	res, err := b.store.Take(ctx, key, b.cfg)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Reset gives key a full bucket again.
func (b *Bucket) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return b.store.Reset(ctx, key)
}

// validate reports every problem with the config at once.
func (c Config) validate() error {
	var problems []error
	if c.Capacity <= 0 {
		problems = append(problems, fmt.Errorf("capacity must be positive, got %d", c.Capacity))
	}
	if c.RefillRate <= 0 {
		problems = append(problems, fmt.Errorf("refill rate must be positive, got %d", c.RefillRate))
	}
	if c.RefillInterval <= 0 {
		problems = append(problems, fmt.Errorf("refill interval must be positive, got %v", c.RefillInterval))
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalidConfig}, problems...)...)
}
