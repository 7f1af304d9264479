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

// MerchantHandler handles merchant onboarding and self-service endpoints.
type MerchantHandler struct {
	merchantSvc ports.MerchantService
}

// NewMerchantHandler creates a new merchant handler.
func NewMerchantHandler(merchantSvc ports.MerchantService) *MerchantHandler {
	return &MerchantHandler{merchantSvc: merchantSvc}
}

// bindJSON binds and sanitizes a request body, writing a validation error
// on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

func currentMerchant(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.MerchantIDFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
	}
	return id, ok
}

// Register handles POST /api/v1/merchants/register.
func (h *MerchantHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	merchant, err := h.merchantSvc.Register(c.Request.Context(), ports.RegisterRequest{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Phone:        req.Phone,
		Website:      req.Website,
		BusinessName: req.BusinessName,
		BusinessType: req.BusinessType,
		Country:      req.Country,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, merchant.ID.String())
	response.Created(c, dto.NewMerchantResponse(merchant))
}

// Login handles POST /api/v1/merchants/login.
func (h *MerchantHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, expiry, err := h.merchantSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LoginResponse{
		Token:  token,
		Expiry: expiry.Unix(),
	})
}

// VerifyEmail handles POST /api/v1/merchants/verify-email.
func (h *MerchantHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyEmailRequest
	if !bindJSON(c, &req) {
		return
	}

	merchant, err := h.merchantSvc.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, merchant.ID.String())
	response.OK(c, dto.NewMerchantResponse(merchant))
}

// ResendVerification handles POST /api/v1/merchants/resend-verification.
func (h *MerchantHandler) ResendVerification(c *gin.Context) {
	var req dto.ResendVerificationRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.merchantSvc.ResendVerification(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "verification email sent")
}

// GetProfile handles GET /api/v1/merchants/me.
func (h *MerchantHandler) GetProfile(c *gin.Context) {
	id, ok := currentMerchant(c)
	if !ok {
		return
	}

	merchant, err := h.merchantSvc.GetProfile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewMerchantResponse(merchant))
}

// UpdateProfile handles PATCH /api/v1/merchants/me/profile.
func (h *MerchantHandler) UpdateProfile(c *gin.Context) {
	id, ok := currentMerchant(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	merchantResult(c)(h.merchantSvc.UpdateProfile(c.Request.Context(), id, ports.UpdateProfileRequest{
		Name:    req.Name,
		Phone:   req.Phone,
		Website: req.Website,
	}))
}

// UpdateBusiness handles PATCH /api/v1/merchants/me/business.
func (h *MerchantHandler) UpdateBusiness(c *gin.Context) {
	id, ok := currentMerchant(c)
	if !ok {
		return
	}
	var req dto.UpdateBusinessRequest
	if !bindJSON(c, &req) {
		return
	}

	merchantResult(c)(h.merchantSvc.UpdateBusinessDetails(c.Request.Context(), id, ports.UpdateBusinessRequest{
		BusinessName:               req.BusinessName,
		BusinessType:               req.BusinessType,
		BusinessRegistrationNumber: req.BusinessRegistrationNumber,
		TaxID:                      req.TaxID,
		BusinessDescription:        req.BusinessDescription,
		BusinessCategory:           req.BusinessCategory,
	}))
}

// UpdateAddress handles PATCH /api/v1/merchants/me/address.
func (h *MerchantHandler) UpdateAddress(c *gin.Context) {
	id, ok := currentMerchant(c)
	if !ok {
		return
	}
	var req dto.UpdateAddressRequest
	if !bindJSON(c, &req) {
		return
	}

	merchantResult(c)(h.merchantSvc.UpdateAddress(c.Request.Context(), id, ports.UpdateAddressRequest{
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		PostalCode:   req.PostalCode,
		Country:      req.Country,
	}))
}

// SubmitKyc handles POST /api/v1/merchants/me/kyc.
func (h *MerchantHandler) SubmitKyc(c *gin.Context) {
	id, ok := currentMerchant(c)
	if !ok {
		return
	}
	var req dto.SubmitKycRequest
	if !bindJSON(c, &req) {
		return
	}

	docs := make([]ports.KycDocumentInput, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = ports.KycDocumentInput{
			Type:     domain.KycDocumentType(d.Type),
			FileName: d.FileName,
			FileURL:  d.FileURL,
		}
	}

	merchantResult(c)(h.merchantSvc.SubmitKyc(c.Request.Context(), id, docs))
}

// UpdateBankAccount handles PUT /api/v1/merchants/me/bank-account.
func (h *MerchantHandler) UpdateBankAccount(c *gin.Context) {
	id, ok := currentMerchant(c)
	if !ok {
		return
	}
	var req dto.BankAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	merchantResult(c)(h.merchantSvc.UpdateBankAccount(c.Request.Context(), id, ports.BankAccountRequest{
		AccountNumber: req.AccountNumber,
		RoutingNumber: req.RoutingNumber,
		HolderName:    req.AccountHolderName,
		BankName:      req.BankName,
		SwiftCode:     req.SwiftCode,
		IBAN:          req.IBAN,
	}))
}

// VerifyBankAccount handles POST /api/v1/merchants/me/bank-account/verify.
func (h *MerchantHandler) VerifyBankAccount(c *gin.Context) {
	id, ok := currentMerchant(c)
	if !ok {
		return
	}
	merchantResult(c)(h.merchantSvc.VerifyBankAccount(c.Request.Context(), id))
}

// UpdateSettlement handles PUT /api/v1/merchants/me/settlement.
func (h *MerchantHandler) UpdateSettlement(c *gin.Context) {
	id, ok := currentMerchant(c)
	if !ok {
		return
	}
	var req dto.SettlementRequest
	if !bindJSON(c, &req) {
		return
	}

	var freq *domain.SettlementFrequency
	if req.Frequency != nil {
		f := domain.SettlementFrequency(*req.Frequency)
		freq = &f
	}
	merchantResult(c)(h.merchantSvc.UpdateSettlementPreferences(c.Request.Context(), id, ports.SettlementRequest{
		Frequency:      freq,
		MinimumAmount:  req.MinimumAmount,
		AutoSettlement: req.AutoSettlement,
	}))
}

// UpdateNotifications handles PATCH /api/v1/merchants/me/notifications.
func (h *MerchantHandler) UpdateNotifications(c *gin.Context) {
	id, ok := currentMerchant(c)
	if !ok {
		return
	}
	var req dto.NotificationRequest
	if !bindJSON(c, &req) {
		return
	}

	merchantResult(c)(h.merchantSvc.UpdateNotificationPreferences(c.Request.Context(), id, ports.NotificationRequest{
		EmailNotifications:   req.EmailNotifications,
		SmsNotifications:     req.SmsNotifications,
		WebhookNotifications: req.WebhookNotifications,
		TransactionAlerts:    req.TransactionAlerts,
		SettlementAlerts:     req.SettlementAlerts,
		SecurityAlerts:       req.SecurityAlerts,
		MarketingEmails:      req.MarketingEmails,
	}))
}

// UpdateCurrencies handles PUT /api/v1/merchants/me/currencies.
func (h *MerchantHandler) UpdateCurrencies(c *gin.Context) {
	id, ok := currentMerchant(c)
	if !ok {
		return
	}
	var req dto.CurrencyRequest
	if !bindJSON(c, &req) {
		return
	}

	merchantResult(c)(h.merchantSvc.UpdateCurrencySettings(c.Request.Context(), id, ports.CurrencyRequest{
		SupportedCurrencies: req.SupportedCurrencies,
		DefaultCurrency:     req.DefaultCurrency,
	}))
}

// GetQuota handles GET /api/v1/merchants/me/quota.
func (h *MerchantHandler) GetQuota(c *gin.Context) {
	id, ok := currentMerchant(c)
	if !ok {
		return
	}

	quota, err := h.merchantSvc.GetApiQuota(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, quota)
}

// merchantResult writes the merchant view or the error returned by a
// service call.
func merchantResult(c *gin.Context) func(*domain.Merchant, error) {
	return func(m *domain.Merchant, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, dto.NewMerchantResponse(m))
	}
}
