// Package locks provides the per-parent dispatch lock.
package locks

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/facturio/backend/internal/application/adapter"
)

// RedisParentLocker serializes follow-up processing per parent across
// concurrent schedulers with a SET NX lease. The TTL bounds how long a
// crashed scheduler can hold a parent hostage.
type RedisParentLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisParentLocker creates a locker with the given lease TTL.
func NewRedisParentLocker(client *redis.Client, ttl time.Duration) *RedisParentLocker {
	return &RedisParentLocker{
		client: client,
		ttl:    ttl,
	}
}

// TryAcquire attempts to take the parent's lock without blocking.
func (l *RedisParentLocker) TryAcquire(ctx context.Context, parentID uuid.UUID) (func(), bool, error) {
	key := lockKey(parentID)
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		return nil, false, nil
	}

	release := func() {
		// Only the holder's token may release; an expired lease taken over
		// by another scheduler stays theirs.
		released, err := releaseScript.Run(context.Background(), l.client, []string{key}, token).Result()
		if err != nil {
			slog.Error("Failed to release parent lock", "error", err, "parent_id", parentID)
			return
		}
		if released == int64(0) {
			slog.Warn("Parent lock lease expired before release", "parent_id", parentID)
		}
	}
	return release, true, nil
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func lockKey(parentID uuid.UUID) string {
	return "followup:lock:" + parentID.String()
}

var _ adapter.ParentLocker = (*RedisParentLocker)(nil)
