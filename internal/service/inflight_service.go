package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stemsi/exstem-console/internal/config"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// InflightGuard rejects a mutation while the same user already has the same
// mutation of the same target in flight.
type InflightGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewInflightGuard creates a guard whose locks expire after ttl at the latest.
func NewInflightGuard(rdb *redis.Client, ttl time.Duration) *InflightGuard {
	return &InflightGuard{rdb: rdb, ttl: ttl}
}

// Acquire takes the lock. ok is false when another request holds it.
// release must be called once the request has settled.
func (g *InflightGuard) Acquire(ctx context.Context, userID int, action, target string) (release func(), ok bool, err error) {
	key := config.CacheKey.InflightKey(userID, action, target)
	token := uuid.New().String()

	ok, err = g.rdb.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire inflight lock: %w", err)
	}
	if !ok {
		return func() {}, false, nil
	}
	return func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), g.rdb, []string{key}, token).Err()
	}, true, nil
}
