package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// New connects to Redis when addr is set and falls back to Noop otherwise,
// including when the server does not answer a ping at startup.
func New(ctx context.Context, addr string, logger *logrus.Logger) Locker {
	if addr == "" {
		logger.Info("REDIS_ADDRESS not set, dispatch locks use the database only")
		return Noop{}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.WithFields(logrus.Fields{"address": addr}).Warn("redis ping failed, dispatch locks use the database only: " + err.Error())
		_ = rdb.Close()
		return Noop{}
	}

	logger.WithFields(logrus.Fields{"address": addr}).Info("redis lock ready")
	return NewRedis(rdb, logger)
}
