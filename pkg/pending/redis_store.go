package pending

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps selections in Redis as JSON with a TTL.
type RedisStore struct {
	db  redis.UniversalClient
	cfg Config
}

// NewRedisStore creates a Redis-backed store.
// Panics if client is nil.
func NewRedisStore(client redis.UniversalClient, cfg Config) *RedisStore {
	if client == nil {
		panic("pending: redis client is required")
	}
	return &RedisStore{db: client, cfg: cfg}
}

func (s *RedisStore) Save(ctx context.Context, key string, sel Selection) error {
	if key == "" {
		return ErrMissingKey
	}
	payload, err := json.Marshal(sel)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if err := s.db.Set(ctx, s.cfg.KeyPrefix+key, payload, s.cfg.TTL).Err(); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, key string) (Selection, bool, error) {
	return s.decode(s.db.Get(ctx, s.cfg.KeyPrefix+key).Bytes())
}

// Take uses GETDEL so concurrent drains cannot both consume the selection.
func (s *RedisStore) Take(ctx context.Context, key string) (Selection, bool, error) {
	return s.decode(s.db.GetDel(ctx, s.cfg.KeyPrefix+key).Bytes())
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.db.Del(ctx, s.cfg.KeyPrefix+key).Err(); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (s *RedisStore) decode(payload []byte, err error) (Selection, bool, error) {
	if errors.Is(err, redis.Nil) {
		return Selection{}, false, nil
	}
	if err != nil {
		return Selection{}, false, errors.Join(ErrStoreFailure, err)
	}
	var sel Selection
	if err := json.Unmarshal(payload, &sel); err != nil {
		return Selection{}, false, errors.Join(ErrStoreFailure, err)
	}
	return sel, true, nil
}
