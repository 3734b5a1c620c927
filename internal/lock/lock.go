// Package lock provides the short-lived cross-instance lock taken around a
// stock request dispatch. The database row lock stays authoritative; this
// only turns a concurrent second dispatch into a fast conflict.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solar-inventory-backend/internal/apperr"
	"solar-inventory-backend/internal/logging"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const DefaultTTL = 30 * time.Second

// Locker returns a release func that is always safe to call.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

type RedisLocker struct {
	client *redislock.Client
	logger *logrus.Logger
}

func NewRedis(rdb *redis.Client, logger *logrus.Logger) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), logger: logger}
}

// Acquire fails with a conflict when another holder has the key. Redis being
// unreachable is logged and the caller proceeds on row locks alone.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lockKey := fmt.Sprintf("lock:%s", key)
	lk, err := l.client.Obtain(ctx, lockKey, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return func() {}, apperr.Conflict("%s is being processed by another request", key)
	}
	if err != nil {
		logging.LogError(l.logger, "lock", "Acquire", "redis unavailable, proceeding without redis lock", lockKey, err)
		return func() {}, nil
	}

	return func() {
		// the request context may already be done
		if err := lk.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logging.LogError(l.logger, "lock", "Release", "release redis lock", lockKey, err)
		}
	}, nil
}

// Noop is used when no Redis address is configured.
type Noop struct{}

func (Noop) Acquire(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}
