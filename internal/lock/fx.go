package lock

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/eventledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("lock",
	fx.Provide(NewLocker),
)

// NewLocker always serialises in process and adds a redis lease when
// REDIS_ADDR is configured.
func NewLocker(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Locker {
	local := NewLocal()
	if !cfg.Redis.Enabled() {
		return local
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis lock backend unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return Chain{local, NewRedis(client, cfg.Redis.LockTTL, cfg.Redis.LockWait, log)}
}
