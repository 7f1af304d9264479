package dto

import (
	"time"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"
)

// RegisterRequest is the request body for merchant registration.
type RegisterRequest struct {
	Name         string  `json:"name" binding:"required,min=1,max=100"`
	Email        string  `json:"email" binding:"required,email,max=255" sanitize:"trim"`
	Password     string  `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
	Phone        *string `json:"phone,omitempty" binding:"omitempty,max=30,digits"`
	Website      *string `json:"website,omitempty" binding:"omitempty,safe_url" sanitize:"trim"`
	BusinessName *string `json:"business_name,omitempty" binding:"omitempty,max=200"`
	BusinessType *string `json:"business_type,omitempty" binding:"omitempty,max=50"`
	Country      *string `json:"country,omitempty" binding:"omitempty,len=2,alpha"`
}

// LoginRequest is the request body for merchant and admin login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" sanitize:"trim"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// LoginResponse is the response body for merchant login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// VerifyEmailRequest carries the token from the verification link.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required,hexadecimal,max=128"`
}

// ResendVerificationRequest asks for a fresh verification email.
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email" sanitize:"trim"`
}

// UpdateProfileRequest is a partial profile update.
type UpdateProfileRequest struct {
	Name    *string `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	Phone   *string `json:"phone,omitempty" binding:"omitempty,max=30,digits"`
	Website *string `json:"website,omitempty" binding:"omitempty,safe_url" sanitize:"trim"`
}

// UpdateBusinessRequest is a partial business-details update.
type UpdateBusinessRequest struct {
	BusinessName               *string `json:"business_name,omitempty" binding:"omitempty,max=200"`
	BusinessType               *string `json:"business_type,omitempty" binding:"omitempty,max=50"`
	BusinessRegistrationNumber *string `json:"business_registration_number,omitempty"`
	TaxID                      *string `json:"tax_id,omitempty"`
	BusinessDescription        *string `json:"business_description,omitempty" binding:"omitempty,max=1000"`
	BusinessCategory           *string `json:"business_category,omitempty" binding:"omitempty,max=100"`
}

// UpdateAddressRequest is a partial address update.
type UpdateAddressRequest struct {
	AddressLine1 *string `json:"address_line1,omitempty" binding:"omitempty,max=200"`
	AddressLine2 *string `json:"address_line2,omitempty" binding:"omitempty,max=200"`
	City         *string `json:"city,omitempty" binding:"omitempty,max=100"`
	State        *string `json:"state,omitempty" binding:"omitempty,max=100"`
	PostalCode   *string `json:"postal_code,omitempty" binding:"omitempty,max=20"`
	Country      *string `json:"country,omitempty" binding:"omitempty,len=2,alpha"`
}

// KycDocumentRequest is one uploaded document reference.
type KycDocumentRequest struct {
	Type     string `json:"type" binding:"required"`
	FileName string `json:"file_name" binding:"required,max=255"`
	FileURL  string `json:"file_url" binding:"required,safe_url" sanitize:"trim"`
}

// SubmitKycRequest is the KYC submission body.
type SubmitKycRequest struct {
	Documents []KycDocumentRequest `json:"documents" binding:"required,min=1,dive"`
}

// BankAccountRequest sets payout account details. Number formats are
// checked by the service so clients get the bank-specific error codes.
type BankAccountRequest struct {
	AccountNumber     string  `json:"account_number" binding:"required"`
	RoutingNumber     *string `json:"routing_number,omitempty"`
	AccountHolderName string  `json:"account_holder_name" binding:"required,max=200"`
	BankName          *string `json:"bank_name,omitempty" binding:"omitempty,max=200"`
	SwiftCode         *string `json:"swift_code,omitempty"`
	IBAN              *string `json:"iban,omitempty"`
}

// SettlementRequest updates payout preferences.
type SettlementRequest struct {
	Frequency      *string `json:"frequency,omitempty" binding:"omitempty,oneof=daily weekly monthly"`
	MinimumAmount  *int64  `json:"minimum_amount,omitempty" binding:"omitempty,gte=0"`
	AutoSettlement *bool   `json:"auto_settlement,omitempty"`
}

// NotificationRequest toggles notification switches.
type NotificationRequest struct {
	EmailNotifications   *bool `json:"email_notifications,omitempty"`
	SmsNotifications     *bool `json:"sms_notifications,omitempty"`
	WebhookNotifications *bool `json:"webhook_notifications,omitempty"`
	TransactionAlerts    *bool `json:"transaction_alerts,omitempty"`
	SettlementAlerts     *bool `json:"settlement_alerts,omitempty"`
	SecurityAlerts       *bool `json:"security_alerts,omitempty"`
	MarketingEmails      *bool `json:"marketing_emails,omitempty"`
}

// CurrencyRequest replaces currency settings.
type CurrencyRequest struct {
	SupportedCurrencies []string `json:"supported_currencies" binding:"required,min=1,max=50,dive,currency_code"`
	DefaultCurrency     string   `json:"default_currency" binding:"required,currency_code"`
}

// StatusUpdateRequest is the admin status change body.
type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING ACTIVE INACTIVE SUSPENDED CLOSED"`
	Reason string `json:"reason,omitempty" binding:"max=500"`
}

// ReasonRequest carries an optional reason for suspend/close.
type ReasonRequest struct {
	Reason string `json:"reason,omitempty" binding:"max=500"`
}

// KycVerifyRequest is the admin KYC decision.
type KycVerifyRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approved rejected"`
	Reason   string `json:"reason,omitempty" binding:"max=500"`
}

// QuotaLimitRequest sets a merchant's API quota.
type QuotaLimitRequest struct {
	Limit *int64 `json:"limit" binding:"required,gte=0"`
}

// MerchantSearchQuery is bound from the admin list query string.
type MerchantSearchQuery struct {
	Query        string  `form:"q" binding:"max=100"`
	Status       *string `form:"status" binding:"omitempty,oneof=PENDING ACTIVE INACTIVE SUSPENDED CLOSED"`
	KycStatus    *string `form:"kyc_status" binding:"omitempty,oneof=NOT_STARTED PENDING IN_REVIEW APPROVED REJECTED EXPIRED"`
	BusinessType *string `form:"business_type" binding:"omitempty,max=50"`
	Country      *string `form:"country" binding:"omitempty,len=2,alpha"`
	Page         int     `form:"page,default=1" binding:"gte=1"`
	Limit        int     `form:"limit,default=20" binding:"gte=1,lte=100"`
}

// RefreshRequest carries an admin refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required" sanitize:"trim"`
}

// AdminLoginResponse is returned by admin login and refresh.
type AdminLoginResponse struct {
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token,omitempty"`
	ExpiresIn    int64               `json:"expires_in"`
	Admin        ports.AdminIdentity `json:"admin"`
}

// BankAccountView is the masked bank account exposed to clients.
type BankAccountView struct {
	AccountNumberLast4 string                   `json:"account_number_last4,omitempty"`
	RoutingNumber      *string                  `json:"routing_number,omitempty"`
	HolderName         *string                  `json:"account_holder_name,omitempty"`
	BankName           *string                  `json:"bank_name,omitempty"`
	SwiftCode          *string                  `json:"swift_code,omitempty"`
	IBANLast4          string                   `json:"iban_last4,omitempty"`
	Status             domain.BankAccountStatus `json:"status"`
	VerifiedAt         *time.Time               `json:"verified_at,omitempty"`
}

// MerchantResponse is the merchant representation returned by the API.
type MerchantResponse struct {
	*domain.Merchant
	BankAccount BankAccountView `json:"bank_account"`
	Quota       domain.APIQuota `json:"api_quota"`
}

// NewMerchantResponse builds the API view of m with bank numbers masked.
func NewMerchantResponse(m *domain.Merchant) MerchantResponse {
	return MerchantResponse{
		Merchant: m,
		BankAccount: BankAccountView{
			AccountNumberLast4: last4(m.BankAccount.AccountNumber),
			RoutingNumber:      m.BankAccount.RoutingNumber,
			HolderName:         m.BankAccount.HolderName,
			BankName:           m.BankAccount.BankName,
			SwiftCode:          m.BankAccount.SwiftCode,
			IBANLast4:          last4(m.BankAccount.IBAN),
			Status:             m.BankAccountStatus,
			VerifiedAt:         m.BankVerifiedAt,
		},
		Quota: m.Quota(),
	}
}

// NewMerchantList maps a page of merchants.
func NewMerchantList(ms []domain.Merchant) []MerchantResponse {
	out := make([]MerchantResponse, len(ms))
	for i := range ms {
		out[i] = NewMerchantResponse(&ms[i])
	}
	return out
}

func last4(v *string) string {
	if v == nil {
		return ""
	}
	s := *v
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
