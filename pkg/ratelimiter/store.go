package ratelimiter

import "context"

// Store keeps bucket state.
type Store interface {
	// Take refills the bucket for key for the time elapsed since its last
	// refill, then spends one token if any is left. The returned Result
	// describes the bucket afterwards.
	Take(ctx context.Context, key string, cfg Config) (Result, error)

	// Reset forgets the bucket for key.
	Reset(ctx context.Context, key string) error
}
