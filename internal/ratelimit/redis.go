package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Atomic increment-and-expire: the key's TTL is set only when the window
// opens, so the counter resets at fixed window boundaries.
var incrWindowScript = redis.NewScript(`
	local count = redis.call("incr", KEYS[1])
	if count == 1 then
		redis.call("pexpire", KEYS[1], ARGV[1])
	end
	return count
`)

// RedisFixedWindow is a fixed-window limiter backed by a shared Redis
// counter, giving horizontally scaled instances one view of request volume.
type RedisFixedWindow struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewRedisFixedWindow creates a limiter allowing max requests per window.
func NewRedisFixedWindow(client *redis.Client, max int, window time.Duration) *RedisFixedWindow {
	return &RedisFixedWindow{client: client, max: max, window: window}
}

// Allow increments the shared counter for the identifier.
func (l *RedisFixedWindow) Allow(ctx context.Context, identifier string) (bool, error) {
	key := "ratelimit:" + identifier

	result, err := incrWindowScript.Run(ctx, l.client, []string{key}, l.window.Milliseconds()).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit incr: %w", err)
	}

	count, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("ratelimit incr: unexpected result type %T", result)
	}
	return count <= int64(l.max), nil
}
