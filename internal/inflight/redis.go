package inflight

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "inflight:"

// releaseScript deletes the key only if it still carries our token, so an
// expired hold never releases a newer one.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard is a Guard shared by every server instance using the same redis.
// Holds expire after ttl so a crashed holder cannot block a key forever.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard creates a RedisGuard.
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

// Acquire takes the key with SET NX PX or fails with ErrInFlight.
func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	ok, err := g.client.SetNX(ctx, keyPrefix+key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring in-flight key: %w", err)
	}
	if !ok {
		return nil, ErrInFlight
	}

	return func() {
		// The request context may already be cancelled by the time we release.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, g.client, []string{keyPrefix + key}, token).Err(); err != nil {
			slog.Warn("failed to release in-flight key", "key", key, "error", err)
		}
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating in-flight token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
