package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// writeCheckTTL bounds how long a readiness marker outlives the check.
const writeCheckTTL = 10 * time.Second

// Healthcheck reports whether Redis can hold pending selections. Answering
// PING is not enough: a replica or a server out of memory answers but
// rejects writes, so the check also sets key with a short expiry.
func Healthcheck(client redis.UniversalClient, key string) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrNotReady, err)
		}
		if err := client.Set(ctx, key, time.Now().Unix(), writeCheckTTL).Err(); err != nil {
			return errors.Join(ErrNotWritable, err)
		}
		return nil
	}
}
