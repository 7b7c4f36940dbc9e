package lock

import (
	"context"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/medicore/internal/clock"
	"github.com/smallbiznis/medicore/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Locker grants a key to one holder at a time until released or expired.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

var Module = fx.Module("lock",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lc    fx.Lifecycle
	Cfg   config.Config
	Log   *zap.Logger
	Clock clock.Clock
}

// New picks Redis when REDIS_ADDR is set and the in-process locker otherwise.
func New(p Params) Locker {
	log := p.Log.Named("lock")
	addr := strings.TrimSpace(p.Cfg.RedisAddr)
	if addr == "" {
		log.Info("redis not configured, using in-memory locks")
		return NewMemoryLocker(p.Clock)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(p.Cfg.RedisPassword),
	})
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis ping failed", zap.String("addr", addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return NewRedisLocker(client, "medicore:lock:")
}
