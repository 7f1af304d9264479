package middleware

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"
	"merchant-service/pkg/apperror"
	"merchant-service/pkg/metrics"
	"merchant-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxRequestID     = "request_id"
	CtxMerchantID    = "merchant_id"
	CtxMerchantEmail = "merchant_email"
	CtxAdminID       = "admin_id"
	CtxAdminEmail    = "admin_email"
	CtxAdminRole     = "admin_role"
)

var requestIDRe = regexp.MustCompile(`^[A-Za-z0-9\-_]{1,64}$`)

// RequestID propagates a caller-supplied X-Request-ID or mints a ULID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if !requestIDRe.MatchString(id) {
			id = ulid.Make().String()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) < 8 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(authHeader[7:]), true
}

// MerchantAuth validates merchant JWTs on /merchants/me routes.
func MerchantAuth(tokenSvc ports.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			response.Abort(c, apperror.ErrInvalidToken())
			return
		}

		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			response.Abort(c, apperror.ErrInvalidToken())
			return
		}

		c.Set(CtxMerchantID, claims.MerchantID)
		c.Set(CtxMerchantEmail, claims.Email)
		c.Next()
	}
}

// AdminAuth validates admin access tokens.
func AdminAuth(authSvc ports.AdminAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			response.Abort(c, apperror.ErrInvalidToken())
			return
		}

		claims, err := authSvc.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(CtxAdminID, claims.UserID)
		c.Set(CtxAdminEmail, claims.Email)
		c.Set(CtxAdminRole, claims.Role)
		c.Next()
	}
}

// RequireRole rejects admins whose role is not in roles. Must run after
// AdminAuth.
func RequireRole(roles ...domain.AdminRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(CtxAdminRole)
		r, _ := role.(domain.AdminRole)
		for _, allowed := range roles {
			if r == allowed {
				c.Next()
				return
			}
		}
		response.Abort(c, apperror.ErrForbidden())
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("request_id", c.GetString(CtxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("request_id", c.GetString(CtxRequestID)).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")
				response.Abort(c, apperror.New(apperror.CodeInternal, "Internal server error", http.StatusInternalServerError))
			}
		}()
		c.Next()
	}
}

// Metrics records request counts and latencies per route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.RequestStarted()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestFinished(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

// MaxBodySize returns middleware that limits the request body size.
// Once the limit is exceeded the reader returns an error and binding
// fails with a validation error.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
