package ratelimiter

import "time"

// Result describes the bucket after an attempt.
type Result struct {
	Limit     int       // bucket capacity
	Remaining int       // tokens left after this attempt
	ResetAt   time.Time // next refill
	Denied    bool      // the bucket was empty and the attempt was not counted
}

// Allowed reports whether the attempt fit in the bucket.
func (r *Result) Allowed() bool {
	return !r.Denied
}

// RetryAfter is zero for allowed attempts.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(0, time.Until(r.ResetAt))
}

// Config is a token bucket definition. The defaults allow a burst of five
// coupon or commit attempts per wizard session, then one more per minute.
type Config struct {
	Capacity       int           `env:"CHECKOUT_ATTEMPT_BURST" envDefault:"5"`
	RefillRate     int           `env:"CHECKOUT_ATTEMPT_REFILL" envDefault:"1"`
	RefillInterval time.Duration `env:"CHECKOUT_ATTEMPT_REFILL_INTERVAL" envDefault:"1m"`
}
