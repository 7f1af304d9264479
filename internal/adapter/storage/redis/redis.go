package redis

import (
	"context"
	"fmt"

	"merchant-service/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Options maps the service's Redis settings onto go-redis options. Zero
// values fall back to the go-redis defaults.
func Options(cfg config.RedisConfig) *goredis.Options {
	return &goredis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// NewClient creates a Redis client and verifies connectivity. The client
// backs rate limiting, the statistics cache and job locks.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(Options(cfg))

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr(), err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Int("pool_size", cfg.PoolSize).
		Msg("Redis connection established")

	return client, nil
}
