package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"merchant-service/internal/core/domain"

	"github.com/google/uuid"
)

// --- Infrastructure Ports ---

// HealthChecker reports whether an external dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string // "postgresql", "redis"
}

// EncryptionService handles AES-256-GCM encryption/decryption of bank fields.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// DigestService derives keyed digests so secrets can be looked up without
// being stored in clear.
type DigestService interface {
	Digest(value string) string
	Equal(value string, digest string) bool
}

// HashService handles password hashing.
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService issues and validates merchant access tokens.
type TokenService interface {
	Generate(merchantID uuid.UUID, email string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed merchant JWT claims.
type TokenClaims struct {
	MerchantID uuid.UUID
	Email      string
}

// AdminTokenService issues and validates admin access and refresh tokens.
type AdminTokenService interface {
	GenerateAccess(user *domain.AdminUser, sessionID uuid.UUID) (string, time.Duration, error)
	GenerateRefresh(user *domain.AdminUser) (string, time.Time, error)
	ValidateAccess(tokenString string) (*AdminClaims, error)
	ValidateRefresh(tokenString string) (*AdminClaims, error)
}

// AdminClaims holds the parsed admin JWT claims.
type AdminClaims struct {
	UserID    uuid.UUID
	Email     string
	Role      domain.AdminRole
	SessionID uuid.UUID // zero for refresh tokens
	TokenType string
}

// StatsCache caches serialized aggregate statistics.
type StatsCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil on miss
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// JobLock provides a cluster-wide mutual exclusion for scheduled jobs.
type JobLock interface {
	// Acquire returns true if this caller now holds key for ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// NotificationSender delivers merchant emails. One method per email kind.
type NotificationSender interface {
	SendVerificationEmail(ctx context.Context, merchant *domain.Merchant, token string) error
	SendWelcomeEmail(ctx context.Context, merchant *domain.Merchant) error
	SendKycSubmittedEmail(ctx context.Context, merchant *domain.Merchant) error
	SendKycApprovedEmail(ctx context.Context, merchant *domain.Merchant) error
	SendKycRejectedEmail(ctx context.Context, merchant *domain.Merchant, reason string) error
	SendBankVerifiedEmail(ctx context.Context, merchant *domain.Merchant) error
	SendSuspensionEmail(ctx context.Context, merchant *domain.Merchant, reason string) error
	SendReactivationEmail(ctx context.Context, merchant *domain.Merchant) error
}

// BankVerifier validates ownership of a payout account.
type BankVerifier interface {
	Verify(ctx context.Context, req BankVerificationRequest) (*BankVerificationResult, error)
}

// BankVerificationRequest is the provider input.
type BankVerificationRequest struct {
	AccountNumber string
	RoutingNumber string
	HolderName    string
	Country       string
	Currency      string
}

// BankVerificationResult is the provider verdict. A nil error with
// Success=false is a provider-side rejection.
type BankVerificationResult struct {
	Success   bool
	Error     string
	Reference string
}

// --- Service Ports (Business Logic) ---

// AuditService records audit entries.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// MerchantService is the merchant lifecycle engine.
type MerchantService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.Merchant, error)
	Login(ctx context.Context, email, password string) (string, time.Time, error) // token, expiry, error
	VerifyEmail(ctx context.Context, token string) (*domain.Merchant, error)
	ResendVerification(ctx context.Context, email string) error

	GetProfile(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*domain.Merchant, error)
	UpdateBusinessDetails(ctx context.Context, id uuid.UUID, req UpdateBusinessRequest) (*domain.Merchant, error)
	UpdateAddress(ctx context.Context, id uuid.UUID, req UpdateAddressRequest) (*domain.Merchant, error)

	SubmitKyc(ctx context.Context, id uuid.UUID, docs []KycDocumentInput) (*domain.Merchant, error)
	StartKycReview(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	VerifyKyc(ctx context.Context, id uuid.UUID, decision domain.KycDecision, reason string) (*domain.Merchant, error)

	UpdateBankAccount(ctx context.Context, id uuid.UUID, req BankAccountRequest) (*domain.Merchant, error)
	VerifyBankAccount(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)

	UpdateSettlementPreferences(ctx context.Context, id uuid.UUID, req SettlementRequest) (*domain.Merchant, error)
	UpdateNotificationPreferences(ctx context.Context, id uuid.UUID, req NotificationRequest) (*domain.Merchant, error)
	UpdateCurrencySettings(ctx context.Context, id uuid.UUID, req CurrencyRequest) (*domain.Merchant, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, target domain.MerchantStatus, reason string) (*domain.Merchant, error)
	Activate(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	Suspend(ctx context.Context, id uuid.UUID, reason string) (*domain.Merchant, error)
	Close(ctx context.Context, id uuid.UUID, reason string) (*domain.Merchant, error)

	CheckAndIncrementApiQuota(ctx context.Context, id uuid.UUID) (*domain.APIQuota, error)
	GetApiQuota(ctx context.Context, id uuid.UUID) (*domain.APIQuota, error)
	UpdateApiQuotaLimit(ctx context.Context, id uuid.UUID, limit int64) (*domain.Merchant, error)
	ResetApiQuotas(ctx context.Context) (int64, error)
	PurgeExpiredVerificationTokens(ctx context.Context) (int64, error)

	Search(ctx context.Context, params MerchantSearchParams) (*SearchResult, error)
	GetStatistics(ctx context.Context) (*MerchantStats, error)
}

// RegisterRequest holds input for merchant registration.
type RegisterRequest struct {
	Name         string
	Email        string
	Password     string
	Phone        *string
	Website      *string
	BusinessName *string
	BusinessType *string
	Country      *string
}

// UpdateProfileRequest is a partial update; nil fields are unchanged.
type UpdateProfileRequest struct {
	Name    *string
	Phone   *string
	Website *string
}

// UpdateBusinessRequest is a partial update; nil fields are unchanged.
type UpdateBusinessRequest struct {
	BusinessName               *string
	BusinessType               *string
	BusinessRegistrationNumber *string
	TaxID                      *string
	BusinessDescription        *string
	BusinessCategory           *string
}

// UpdateAddressRequest is a partial update; nil fields are unchanged.
type UpdateAddressRequest struct {
	AddressLine1 *string
	AddressLine2 *string
	City         *string
	State        *string
	PostalCode   *string
	Country      *string
}

// KycDocumentInput is one document in a KYC submission.
type KycDocumentInput struct {
	Type     domain.KycDocumentType
	FileName string
	FileURL  string
}

// BankAccountRequest holds payout account details.
type BankAccountRequest struct {
	AccountNumber string
	RoutingNumber *string
	HolderName    string
	BankName      *string
	SwiftCode     *string
	IBAN          *string
}

// SettlementRequest is a partial update; nil fields are unchanged.
type SettlementRequest struct {
	Frequency      *domain.SettlementFrequency
	MinimumAmount  *int64
	AutoSettlement *bool
}

// ApplyTo merges the set fields into p.
func (r SettlementRequest) ApplyTo(p *domain.SettlementPreferences) {
	if r.Frequency != nil {
		p.Frequency = *r.Frequency
	}
	if r.MinimumAmount != nil {
		p.MinimumAmount = *r.MinimumAmount
	}
	if r.AutoSettlement != nil {
		p.AutoSettlement = *r.AutoSettlement
	}
}

// NotificationRequest is merged over the stored preferences.
type NotificationRequest struct {
	EmailNotifications   *bool
	SmsNotifications     *bool
	WebhookNotifications *bool
	TransactionAlerts    *bool
	SettlementAlerts     *bool
	SecurityAlerts       *bool
	MarketingEmails      *bool
}

// ApplyTo merges the set switches into p.
func (r NotificationRequest) ApplyTo(p *domain.NotificationPreferences) {
	for _, f := range []struct {
		dst *bool
		v   *bool
	}{
		{&p.EmailNotifications, r.EmailNotifications},
		{&p.SmsNotifications, r.SmsNotifications},
		{&p.WebhookNotifications, r.WebhookNotifications},
		{&p.TransactionAlerts, r.TransactionAlerts},
		{&p.SettlementAlerts, r.SettlementAlerts},
		{&p.SecurityAlerts, r.SecurityAlerts},
		{&p.MarketingEmails, r.MarketingEmails},
	} {
		if f.v != nil {
			*f.dst = *f.v
		}
	}
}

// CurrencyRequest replaces the currency settings.
type CurrencyRequest struct {
	SupportedCurrencies []string
	DefaultCurrency     string
}

// SearchResult is a page of merchants.
type SearchResult struct {
	Data       []domain.Merchant
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// AdminAuthService is the admin authentication engine.
type AdminAuthService interface {
	Login(ctx context.Context, req AdminLoginRequest) (*AdminLoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AdminLoginResult, error)
	Logout(ctx context.Context, refreshToken string)
	Authenticate(ctx context.Context, accessToken string) (*AdminClaims, error)
}

// AdminLoginRequest carries credentials plus client metadata.
type AdminLoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// AdminLoginResult is returned by login and refresh. RefreshToken is empty
// on refresh.
type AdminLoginResult struct {
	AccessToken  string
	ExpiresIn    int64 // seconds
	Admin        AdminIdentity
	RefreshToken string
}

// AdminIdentity is the public view of an admin user.
type AdminIdentity struct {
	ID    uuid.UUID        `json:"id"`
	Email string           `json:"email"`
	Role  domain.AdminRole `json:"role"`
}
