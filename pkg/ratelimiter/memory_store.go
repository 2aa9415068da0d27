package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
}

// MemoryStore keeps buckets in process memory. Buckets untouched for the
// idle period are dropped by a background sweep.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	idle      time.Duration
	sweepEach time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often idle buckets are swept. Zero disables
// the background sweep.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.sweepEach = interval
	}
}

// WithIdleTimeout sets how long an untouched bucket is kept.
func WithIdleTimeout(idle time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if idle > 0 {
			ms.idle = idle
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStore creates an in-memory bucket store. Call Close to stop the
// background sweep.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:   make(map[string]*bucket),
		now:       time.Now,
		idle:      time.Hour,
		sweepEach: 5 * time.Minute,
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ms)
	}

	if ms.sweepEach > 0 {
		go ms.cleanup()
	}
	return ms
}

func (ms *MemoryStore) Take(ctx context.Context, key string, cfg Config) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	b, ok := ms.buckets[key]
	if !ok {
		b = &bucket{tokens: cfg.Capacity, lastRefill: now}
		ms.buckets[key] = b
	}
	b.refill(now, cfg)
	b.lastAccess = now

	res := Result{Limit: cfg.Capacity, ResetAt: b.lastRefill.Add(cfg.RefillInterval)}
	if b.tokens == 0 {
		res.Denied = true
		return res, nil
	}
	b.tokens--
	res.Remaining = b.tokens
	return res, nil
}

// refill credits whole elapsed intervals. A denied attempt leaves
// lastRefill alone, so hammering an empty bucket does not delay its refill.
func (b *bucket) refill(now time.Time, cfg Config) {
	elapsed := now.Sub(b.lastRefill) / cfg.RefillInterval
	if elapsed <= 0 {
		return
	}
	// Enough intervals to fill from empty; more would only risk overflow.
	full := time.Duration(cfg.Capacity/cfg.RefillRate + 1)
	b.tokens = min(b.tokens+int(min(elapsed, full))*cfg.RefillRate, cfg.Capacity)
	b.lastRefill = now
}

func (ms *MemoryStore) Reset(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.buckets, key)
	return nil
}

// Len returns the number of live buckets.
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.buckets)
}

// Sweep drops buckets idle for longer than the idle timeout and returns
// how many were removed.
func (ms *MemoryStore) Sweep() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	removed := 0
	for key, b := range ms.buckets {
		if now.Sub(b.lastAccess) > ms.idle {
			delete(ms.buckets, key)
			removed++
		}
	}
	return removed
}

func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.sweepEach)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.Sweep()
		case <-ms.stop:
			return
		}
	}
}

// Close stops the background sweep. Safe to call more than once.
func (ms *MemoryStore) Close() {
	ms.stopOnce.Do(func() { close(ms.stop) })
}
