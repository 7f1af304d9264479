package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	redisStore "merchant-service/internal/adapter/storage/redis"
	"merchant-service/pkg/apperror"
	"merchant-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Rate limit groups.
const (
	GroupMerchantRegister = "merchant_register"
	GroupMerchantLogin    = "merchant_login"
	GroupMerchantVerify   = "merchant_verify"
	GroupAdminLogin       = "admin_login"
	GroupMerchantAPI      = "merchant_api"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the per-group rate limits.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		GroupMerchantRegister: {Limit: 5, Window: time.Hour},
		GroupMerchantLogin:    {Limit: 10, Window: time.Minute},
		GroupMerchantVerify:   {Limit: 10, Window: time.Minute},
		GroupAdminLogin:       {Limit: 10, Window: time.Minute},
		GroupMerchantAPI:      {Limit: 120, Window: time.Minute},
	}
}

// RateLimitStore is the fixed-window counter backing RateLimiter.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
func RateLimiter(store RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := extractIdentifier(c)
		key := fmt.Sprintf("%s:%s", identifier, group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		// Always set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := max(result.ResetAt-time.Now().Unix(), 1)
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Abort(c, apperror.ErrRateLimitExceeded())
			return
		}

		c.Next()
	}
}

// extractIdentifier determines the rate limit key source.
func extractIdentifier(c *gin.Context) string {
	if mid, ok := MerchantIDFrom(c); ok {
		return mid.String()
	}
	if aid, ok := AdminIDFrom(c); ok {
		return aid.String()
	}
	return c.ClientIP()
}

const localLimiterIdleTTL = 5 * time.Minute

// LocalRateLimiter is an in-process token bucket per client, used when no
// Redis limiter is configured. Idle buckets are evicted lazily.
type LocalRateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*localBucket
	perSecond rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type localBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLocalRateLimiter creates a limiter allowing perSecond requests with
// the given burst per client.
func NewLocalRateLimiter(perSecond float64, burst int) *LocalRateLimiter {
	return &LocalRateLimiter{
		buckets:   make(map[string]*localBucket),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		now:       time.Now,
	}
}

// Allow reports whether key may proceed now.
func (l *LocalRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > localLimiterIdleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{lim: rate.NewLimiter(l.perSecond, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Middleware limits requests per client IP.
func (l *LocalRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			response.Abort(c, apperror.ErrRateLimitExceeded())
			return
		}
		c.Next()
	}
}
