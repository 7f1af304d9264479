package handler

import (
	"merchant-service/internal/adapter/http/dto"
	"merchant-service/internal/adapter/http/middleware"
	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"
	"merchant-service/pkg/apperror"
	"merchant-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminAuthHandler handles admin login, refresh and logout.
type AdminAuthHandler struct {
	authSvc ports.AdminAuthService
}

// NewAdminAuthHandler creates a new AdminAuthHandler.
func NewAdminAuthHandler(authSvc ports.AdminAuthService) *AdminAuthHandler {
	return &AdminAuthHandler{authSvc: authSvc}
}

// Login handles POST /api/v1/admin/auth/login.
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), ports.AdminLoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAdminID, result.Admin.ID)
	c.Set(middleware.CtxAuditResourceID, result.Admin.ID.String())
	response.OK(c, loginResponse(result))
}

// Refresh handles POST /api/v1/admin/auth/refresh.
func (h *AdminAuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAdminID, result.Admin.ID)
	response.OK(c, loginResponse(result))
}

// Logout handles POST /api/v1/admin/auth/logout. It always succeeds.
func (h *AdminAuthHandler) Logout(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	h.authSvc.Logout(c.Request.Context(), req.RefreshToken)
	response.Message(c, "logged out")
}

func loginResponse(r *ports.AdminLoginResult) dto.AdminLoginResponse {
	return dto.AdminLoginResponse{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
		Admin:        r.Admin,
	}
}

// AdminMerchantHandler handles the admin merchant-management endpoints.
type AdminMerchantHandler struct {
	merchantSvc ports.MerchantService
}

// NewAdminMerchantHandler creates a new AdminMerchantHandler.
func NewAdminMerchantHandler(merchantSvc ports.MerchantService) *AdminMerchantHandler {
	return &AdminMerchantHandler{merchantSvc: merchantSvc}
}

func merchantParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid merchant id"))
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /api/v1/admin/merchants.
func (h *AdminMerchantHandler) List(c *gin.Context) {
	var q dto.MerchantSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	params := ports.MerchantSearchParams{
		Query:        q.Query,
		BusinessType: q.BusinessType,
		Country:      q.Country,
		Page:         q.Page,
		Limit:        q.Limit,
	}
	if q.Status != nil {
		s := domain.MerchantStatus(*q.Status)
		params.Status = &s
	}
	if q.KycStatus != nil {
		k := domain.KycStatus(*q.KycStatus)
		params.KycStatus = &k
	}

	result, err := h.merchantSvc.Search(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.NewMerchantList(result.Data), result.Total, result.Page, result.Limit, result.TotalPages)
}

// Stats handles GET /api/v1/admin/merchants/stats.
func (h *AdminMerchantHandler) Stats(c *gin.Context) {
	stats, err := h.merchantSvc.GetStatistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Get handles GET /api/v1/admin/merchants/:id.
func (h *AdminMerchantHandler) Get(c *gin.Context) {
	id, ok := merchantParam(c)
	if !ok {
		return
	}
	merchantResult(c)(h.merchantSvc.GetProfile(c.Request.Context(), id))
}

// UpdateStatus handles PATCH /api/v1/admin/merchants/:id/status.
func (h *AdminMerchantHandler) UpdateStatus(c *gin.Context) {
	id, ok := merchantParam(c)
	if !ok {
		return
	}
	var req dto.StatusUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	merchantResult(c)(h.merchantSvc.UpdateStatus(c.Request.Context(), id, domain.MerchantStatus(req.Status), req.Reason))
}

// Activate handles POST /api/v1/admin/merchants/:id/activate.
func (h *AdminMerchantHandler) Activate(c *gin.Context) {
	id, ok := merchantParam(c)
	if !ok {
		return
	}
	merchantResult(c)(h.merchantSvc.Activate(c.Request.Context(), id))
}

// Suspend handles POST /api/v1/admin/merchants/:id/suspend.
func (h *AdminMerchantHandler) Suspend(c *gin.Context) {
	id, ok := merchantParam(c)
	if !ok {
		return
	}
	req, ok := bindReason(c)
	if !ok {
		return
	}
	merchantResult(c)(h.merchantSvc.Suspend(c.Request.Context(), id, req.Reason))
}

// Close handles POST /api/v1/admin/merchants/:id/close.
func (h *AdminMerchantHandler) Close(c *gin.Context) {
	id, ok := merchantParam(c)
	if !ok {
		return
	}
	req, ok := bindReason(c)
	if !ok {
		return
	}
	merchantResult(c)(h.merchantSvc.Close(c.Request.Context(), id, req.Reason))
}

// StartKycReview handles POST /api/v1/admin/merchants/:id/kyc/review.
func (h *AdminMerchantHandler) StartKycReview(c *gin.Context) {
	id, ok := merchantParam(c)
	if !ok {
		return
	}
	merchantResult(c)(h.merchantSvc.StartKycReview(c.Request.Context(), id))
}

// VerifyKyc handles POST /api/v1/admin/merchants/:id/kyc/verify.
func (h *AdminMerchantHandler) VerifyKyc(c *gin.Context) {
	id, ok := merchantParam(c)
	if !ok {
		return
	}
	var req dto.KycVerifyRequest
	if !bindJSON(c, &req) {
		return
	}
	merchantResult(c)(h.merchantSvc.VerifyKyc(c.Request.Context(), id, domain.KycDecision(req.Decision), req.Reason))
}

// UpdateQuota handles PUT /api/v1/admin/merchants/:id/quota.
func (h *AdminMerchantHandler) UpdateQuota(c *gin.Context) {
	id, ok := merchantParam(c)
	if !ok {
		return
	}
	var req dto.QuotaLimitRequest
	if !bindJSON(c, &req) {
		return
	}
	merchantResult(c)(h.merchantSvc.UpdateApiQuotaLimit(c.Request.Context(), id, *req.Limit))
}

// bindReason accepts an empty body as "no reason".
func bindReason(c *gin.Context) (dto.ReasonRequest, bool) {
	var req dto.ReasonRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	ok := bindJSON(c, &req)
	return req, ok
}
