package middleware

import (
	"strconv"

	"merchant-service/internal/core/ports"
	"merchant-service/pkg/apperror"
	"merchant-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderQuotaLimit     = "X-Quota-Limit"
	HeaderQuotaRemaining = "X-Quota-Remaining"
	HeaderQuotaReset     = "X-Quota-Reset"
)

// ApiQuota consumes one unit of the authenticated merchant's API quota per
// request. Must run after MerchantAuth.
func ApiQuota(svc ports.MerchantService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := MerchantIDFrom(c)
		if !ok {
			response.Abort(c, apperror.ErrInvalidToken())
			return
		}

		quota, err := svc.CheckAndIncrementApiQuota(c.Request.Context(), id)
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Header(HeaderQuotaLimit, strconv.FormatInt(quota.Limit, 10))
		c.Header(HeaderQuotaRemaining, strconv.FormatInt(quota.Remaining, 10))
		c.Header(HeaderQuotaReset, strconv.FormatInt(quota.ResetAt.Unix(), 10))
		c.Next()
	}
}

// MerchantIDFrom returns the merchant id set by MerchantAuth.
func MerchantIDFrom(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(CtxMerchantID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// AdminIDFrom returns the admin user id set by AdminAuth.
func AdminIDFrom(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(CtxAdminID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
