package middleware

import (
	"encoding/json"
	"net/http"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CtxAuditResourceID lets a handler name the resource it touched when the
// route carries no id (e.g. registration).
const CtxAuditResourceID = "audit_resource_id"

type auditRoute struct {
	action       domain.AuditAction
	resourceType string
}

// auditRoutes is keyed by "METHOD route-template".
var auditRoutes = map[string]auditRoute{
	"POST /api/v1/merchants/register":            {domain.AuditActionRegister, "merchant"},
	"POST /api/v1/merchants/login":               {domain.AuditActionLogin, "session"},
	"POST /api/v1/merchants/verify-email":        {domain.AuditActionVerifyEmail, "merchant"},
	"POST /api/v1/merchants/resend-verification": {domain.AuditActionResendVerify, "merchant"},

	"PATCH /api/v1/merchants/me/profile":            {domain.AuditActionUpdateProfile, "merchant"},
	"PATCH /api/v1/merchants/me/business":           {domain.AuditActionUpdateProfile, "merchant"},
	"PATCH /api/v1/merchants/me/address":            {domain.AuditActionUpdateProfile, "merchant"},
	"POST /api/v1/merchants/me/kyc":                 {domain.AuditActionSubmitKyc, "kyc"},
	"PUT /api/v1/merchants/me/bank-account":         {domain.AuditActionUpdateBank, "bank_account"},
	"POST /api/v1/merchants/me/bank-account/verify": {domain.AuditActionVerifyBank, "bank_account"},
	"PUT /api/v1/merchants/me/settlement":           {domain.AuditActionUpdatePreferences, "merchant"},
	"PATCH /api/v1/merchants/me/notifications":      {domain.AuditActionUpdatePreferences, "merchant"},
	"PUT /api/v1/merchants/me/currencies":           {domain.AuditActionUpdatePreferences, "merchant"},

	"POST /api/v1/admin/auth/login":   {domain.AuditActionAdminLogin, "admin_session"},
	"POST /api/v1/admin/auth/refresh": {domain.AuditActionAdminRefresh, "admin_session"},
	"POST /api/v1/admin/auth/logout":  {domain.AuditActionAdminLogout, "admin_session"},

	"PATCH /api/v1/admin/merchants/:id/status":    {domain.AuditActionStatusChange, "merchant"},
	"POST /api/v1/admin/merchants/:id/activate":   {domain.AuditActionStatusChange, "merchant"},
	"POST /api/v1/admin/merchants/:id/suspend":    {domain.AuditActionStatusChange, "merchant"},
	"POST /api/v1/admin/merchants/:id/close":      {domain.AuditActionStatusChange, "merchant"},
	"POST /api/v1/admin/merchants/:id/kyc/review": {domain.AuditActionReviewKyc, "kyc"},
	"POST /api/v1/admin/merchants/:id/kyc/verify": {domain.AuditActionKycDecision, "kyc"},
	"PUT /api/v1/admin/merchants/:id/quota":       {domain.AuditActionQuotaUpdate, "merchant"},
}

// AuditLog creates an audit middleware that records successful write
// operations, keyed by the matched route template.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		route, ok := auditRoutes[c.Request.Method+" "+c.FullPath()]
		if !ok {
			return
		}

		entry := &domain.AuditLog{
			ID:           uuid.New(),
			Action:       route.action,
			ResourceType: route.resourceType,
			ResourceID:   c.Param("id"),
			IPAddress:    c.ClientIP(),
		}

		if id, ok := MerchantIDFrom(c); ok {
			entry.MerchantID = &id
			entry.Actor = "merchant:" + id.String()
			entry.ResourceID = id.String()
		} else if id, ok := AdminIDFrom(c); ok {
			entry.Actor = "admin:" + id.String()
		}
		if rid := c.GetString(CtxAuditResourceID); rid != "" {
			entry.ResourceID = rid
		}
		if entry.MerchantID == nil && route.resourceType != "admin_session" && entry.ResourceID != "" {
			if mid, err := uuid.Parse(entry.ResourceID); err == nil {
				entry.MerchantID = &mid
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(CtxRequestID),
		})
		entry.Details = string(details)

		auditSvc.Log(c.Request.Context(), entry)
	}
}
