package store

import (
	"context"
	"fmt"
	"github.com/clambin/opendoor/internal/guard"
	"github.com/redis/go-redis/v9"
	"time"
)

var _ guard.Store = &Redis{}

// Redis stores leases in Redis, so several instances can share them. Expiry is left to Redis.
type Redis struct {
	Client redis.Cmdable
	Prefix string
}

// OpenRedis connects to the Redis server at rawURL (redis://...) and checks that it's reachable.
func OpenRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err = rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

func (r *Redis) Acquire(ctx context.Context, key string, now time.Time, expiry time.Duration) (bool, error) {
	return r.Client.SetNX(ctx, r.Prefix+key, now.UnixMilli(), expiry).Result()
}

func (r *Redis) Release(ctx context.Context, key string) error {
	return r.Client.Del(ctx, r.Prefix+key).Err()
}
