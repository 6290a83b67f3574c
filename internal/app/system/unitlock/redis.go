package unitlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Default Redis lock timings.
const (
	DefaultTTL   = 10 * time.Second
	DefaultRetry = 25 * time.Millisecond
)

// releaseScript deletes the lock only if it still carries our token, so an
// expired holder cannot release a lock that has since been re-acquired.
// KEYS[1] = lock key
// ARGV[1] = holder token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lock shared by every instance connected to the same server.
type Redis struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedis creates a Redis lock. ttl bounds how long a crashed holder can
// block a unit; zero values use the defaults.
func NewRedis(client redis.Cmdable, prefix string, ttl, retry time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if retry <= 0 {
		retry = DefaultRetry
	}
	if prefix == "" {
		prefix = "clubhub:lock:"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, retry: retry}
}

// Lock polls until the key is acquired or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return r.unlocker(k, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Redis) unlocker(k, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// Release on a fresh context: the request context may already be done.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, r.client, []string{k}, token).Err()
		})
	}
}
