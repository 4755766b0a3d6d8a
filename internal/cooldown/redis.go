package cooldown

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps cooldowns in Redis so several bot instances share them.
// Entries expire with their window.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store using keys "<prefix>:cooldown:<key>".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return fmt.Sprintf("%s:cooldown:%s", s.prefix, k)
}

// Get returns the recorded time for key.
func (s *RedisStore) Get(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt cooldown value %q: %w", raw, err)
	}
	return time.Unix(0, nanos), true, nil
}

// Set records t for key with the given ttl.
func (s *RedisStore) Set(ctx context.Context, key string, t time.Time, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(key), strconv.FormatInt(t.UnixNano(), 10), ttl).Err()
}
