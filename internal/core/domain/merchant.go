package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// MerchantStatus represents the state of a merchant account.
type MerchantStatus string

const (
	MerchantStatusPending   MerchantStatus = "PENDING"
	MerchantStatusActive    MerchantStatus = "ACTIVE"
	MerchantStatusInactive  MerchantStatus = "INACTIVE"
	MerchantStatusSuspended MerchantStatus = "SUSPENDED"
	MerchantStatusClosed    MerchantStatus = "CLOSED"
)

// KycStatus represents the state of a merchant's KYC verification.
type KycStatus string

const (
	KycStatusNotStarted KycStatus = "NOT_STARTED"
	KycStatusPending    KycStatus = "PENDING"
	KycStatusInReview   KycStatus = "IN_REVIEW"
	KycStatusApproved   KycStatus = "APPROVED"
	KycStatusRejected   KycStatus = "REJECTED"
	KycStatusExpired    KycStatus = "EXPIRED"
)

// BankAccountStatus represents the verification state of the payout account.
type BankAccountStatus string

const (
	BankAccountStatusNotVerified BankAccountStatus = "NOT_VERIFIED"
	BankAccountStatusPending     BankAccountStatus = "PENDING"
	BankAccountStatusVerified    BankAccountStatus = "VERIFIED"
	BankAccountStatusFailed      BankAccountStatus = "FAILED"
)

// SettlementFrequency controls how often payouts are made.
type SettlementFrequency string

const (
	SettlementDaily   SettlementFrequency = "daily"
	SettlementWeekly  SettlementFrequency = "weekly"
	SettlementMonthly SettlementFrequency = "monthly"
)

// IsValid reports whether f is a known frequency.
func (f SettlementFrequency) IsValid() bool {
	switch f {
	case SettlementDaily, SettlementWeekly, SettlementMonthly:
		return true
	}
	return false
}

var statusTransitions = map[MerchantStatus][]MerchantStatus{
	MerchantStatusPending:   {MerchantStatusActive, MerchantStatusSuspended, MerchantStatusClosed},
	MerchantStatusActive:    {MerchantStatusInactive, MerchantStatusSuspended, MerchantStatusClosed},
	MerchantStatusInactive:  {MerchantStatusActive, MerchantStatusSuspended, MerchantStatusClosed},
	MerchantStatusSuspended: {MerchantStatusActive, MerchantStatusClosed},
	MerchantStatusClosed:    {},
}

// KYC transitions. PENDING -> PENDING is a document resubmission.
var kycTransitions = map[KycStatus][]KycStatus{
	KycStatusNotStarted: {KycStatusPending},
	KycStatusPending:    {KycStatusPending, KycStatusInReview, KycStatusApproved, KycStatusRejected},
	KycStatusInReview:   {KycStatusApproved, KycStatusRejected},
	KycStatusApproved:   {},
	KycStatusRejected:   {KycStatusPending},
	KycStatusExpired:    {KycStatusPending},
}

// IsValid reports whether s is a known merchant status.
func (s MerchantStatus) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether the status table allows s -> to.
func (s MerchantStatus) CanTransitionTo(to MerchantStatus) bool {
	return slices.Contains(statusTransitions[s], to)
}

// AllowedTransitions returns a copy of the targets reachable from s.
func (s MerchantStatus) AllowedTransitions() []MerchantStatus {
	return slices.Clone(statusTransitions[s])
}

// IsValid reports whether s is a known KYC status.
func (s KycStatus) IsValid() bool {
	_, ok := kycTransitions[s]
	return ok
}

// CanTransitionTo reports whether the KYC table allows s -> to.
func (s KycStatus) CanTransitionTo(to KycStatus) bool {
	return slices.Contains(kycTransitions[s], to)
}

// KycSourcesFor lists every KYC status from which to is reachable.
func KycSourcesFor(to KycStatus) []KycStatus {
	var out []KycStatus
	for _, from := range AllKycStatuses() {
		if from.CanTransitionTo(to) {
			out = append(out, from)
		}
	}
	return out
}

// AllMerchantStatuses returns the statuses in lifecycle order.
func AllMerchantStatuses() []MerchantStatus {
	return []MerchantStatus{
		MerchantStatusPending, MerchantStatusActive, MerchantStatusInactive,
		MerchantStatusSuspended, MerchantStatusClosed,
	}
}

// AllKycStatuses returns the KYC statuses in workflow order.
func AllKycStatuses() []KycStatus {
	return []KycStatus{
		KycStatusNotStarted, KycStatusPending, KycStatusInReview,
		KycStatusApproved, KycStatusRejected, KycStatusExpired,
	}
}

// AllBankAccountStatuses returns the bank verification states.
func AllBankAccountStatuses() []BankAccountStatus {
	return []BankAccountStatus{
		BankAccountStatusNotVerified, BankAccountStatusPending,
		BankAccountStatusVerified, BankAccountStatusFailed,
	}
}

// BankAccount holds payout account details. AccountNumber and IBAN are
// encrypted at rest.
type BankAccount struct {
	AccountNumber *string `json:"-"`
	RoutingNumber *string `json:"routing_number,omitempty"`
	HolderName    *string `json:"account_holder_name,omitempty"`
	BankName      *string `json:"bank_name,omitempty"`
	SwiftCode     *string `json:"swift_code,omitempty"`
	IBAN          *string `json:"-"`
}

// SettlementPreferences holds payout configuration.
type SettlementPreferences struct {
	Frequency      SettlementFrequency `json:"frequency"`
	MinimumAmount  int64               `json:"minimum_amount"` // In minor units
	AutoSettlement bool                `json:"auto_settlement"`
}

// NotificationPreferences holds the merchant's notification switches.
type NotificationPreferences struct {
	EmailNotifications   bool `json:"email_notifications"`
	SmsNotifications     bool `json:"sms_notifications"`
	WebhookNotifications bool `json:"webhook_notifications"`
	TransactionAlerts    bool `json:"transaction_alerts"`
	SettlementAlerts     bool `json:"settlement_alerts"`
	SecurityAlerts       bool `json:"security_alerts"`
	MarketingEmails      bool `json:"marketing_emails"`
}

// DefaultNotificationPreferences enables everything except SMS and marketing.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		EmailNotifications:   true,
		SmsNotifications:     false,
		WebhookNotifications: true,
		TransactionAlerts:    true,
		SettlementAlerts:     true,
		SecurityAlerts:       true,
		MarketingEmails:      false,
	}
}

// DefaultSettlementPreferences is applied at registration.
func DefaultSettlementPreferences() SettlementPreferences {
	return SettlementPreferences{Frequency: SettlementDaily}
}

// Merchant represents a registered merchant in the system.
type Merchant struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Never expose
	Phone        *string   `json:"phone,omitempty"`
	Website      *string   `json:"website,omitempty"`

	BusinessName               *string `json:"business_name,omitempty"`
	BusinessType               *string `json:"business_type,omitempty"`
	BusinessRegistrationNumber *string `json:"business_registration_number,omitempty"`
	TaxID                      *string `json:"tax_id,omitempty"`
	BusinessDescription        *string `json:"business_description,omitempty"`
	BusinessCategory           *string `json:"business_category,omitempty"`

	AddressLine1 *string `json:"address_line1,omitempty"`
	AddressLine2 *string `json:"address_line2,omitempty"`
	City         *string `json:"city,omitempty"`
	State        *string `json:"state,omitempty"`
	PostalCode   *string `json:"postal_code,omitempty"`
	Country      *string `json:"country,omitempty"`

	Status            MerchantStatus    `json:"status"`
	KycStatus         KycStatus         `json:"kyc_status"`
	BankAccountStatus BankAccountStatus `json:"bank_account_status"`

	EmailVerified              bool       `json:"email_verified"`
	EmailVerificationToken     *string    `json:"-"` // HMAC digest of the emailed token
	EmailVerificationExpiresAt *time.Time `json:"-"`
	EmailVerifiedAt            *time.Time `json:"email_verified_at,omitempty"`

	BankAccount        BankAccount `json:"bank_account"`
	BankAccountVersion int64       `json:"-"` // bumped on every account change

	SupportedCurrencies []string                `json:"supported_currencies"`
	DefaultCurrency     string                  `json:"default_currency"`
	Settlement          SettlementPreferences   `json:"settlement"`
	Notifications       NotificationPreferences `json:"notifications"`

	ApiQuotaUsed    int64     `json:"api_quota_used"`
	ApiQuotaLimit   int64     `json:"api_quota_limit"`
	ApiQuotaResetAt time.Time `json:"api_quota_reset_at"`

	KycDocuments       []KycDocument `json:"kyc_documents"`
	KycRejectionReason *string       `json:"kyc_rejection_reason,omitempty"`

	SuspensionReason *string `json:"suspension_reason,omitempty"`
	ClosedReason     *string `json:"closed_reason,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	KycSubmittedAt *time.Time `json:"kyc_submitted_at,omitempty"`
	KycVerifiedAt  *time.Time `json:"kyc_verified_at,omitempty"`
	BankVerifiedAt *time.Time `json:"bank_verified_at,omitempty"`
}

// IsActive returns true if the merchant account is active.
func (m *Merchant) IsActive() bool {
	return m.Status == MerchantStatusActive
}

// HasBankAccount reports whether enough bank details exist to verify.
func (m *Merchant) HasBankAccount() bool {
	return m.BankAccount.AccountNumber != nil && *m.BankAccount.AccountNumber != "" &&
		m.BankAccount.RoutingNumber != nil && *m.BankAccount.RoutingNumber != ""
}

// Quota returns a snapshot of the merchant's API quota.
func (m *Merchant) Quota() APIQuota {
	return NewAPIQuota(m.ApiQuotaUsed, m.ApiQuotaLimit, m.ApiQuotaResetAt)
}

// APIQuota is a point-in-time view of a merchant's API usage.
type APIQuota struct {
	Used      int64     `json:"used"`
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// NewAPIQuota builds a snapshot; Remaining never goes negative.
func NewAPIQuota(used, limit int64, resetAt time.Time) APIQuota {
	return APIQuota{
		Used:      used,
		Limit:     limit,
		Remaining: max(limit-used, 0),
		ResetAt:   resetAt,
	}
}
