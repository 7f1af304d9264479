package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// HealthCheck implements ports.HealthChecker for Redis.
type HealthCheck struct {
	client goredis.Cmdable
}

// NewHealthCheck creates a Redis health checker.
func NewHealthCheck(client goredis.Cmdable) *HealthCheck {
	return &HealthCheck{client: client}
}

// Ping checks Redis connectivity.
func (h *HealthCheck) Ping(ctx context.Context) error {
	if err := h.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "redis"
}
