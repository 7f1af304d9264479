package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"merchant-service/internal/core/domain"

	"github.com/google/uuid"
)

// ErrDuplicateEmail is returned by Create when the lowercased email is taken.
var ErrDuplicateEmail = errors.New("email already registered")

// MerchantRepository defines persistence operations for merchants.
// Lookups return (nil, nil) when no row matches.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	GetByEmail(ctx context.Context, email string) (*domain.Merchant, error)
	GetByVerificationToken(ctx context.Context, tokenDigest string) (*domain.Merchant, error)

	// Patch writes only the columns set in patch. With RequireWritable the
	// write also requires a status other than SUSPENDED or CLOSED. Returns
	// (nil, nil) when no row matches.
	Patch(ctx context.Context, id uuid.UUID, patch MerchantPatch) (*domain.Merchant, error)

	// MarkEmailVerified consumes tokenDigest if it is still the stored,
	// unexpired token of an unverified merchant. Returns (nil, nil) otherwise.
	MarkEmailVerified(ctx context.Context, id uuid.UUID, tokenDigest string, at time.Time) (*domain.Merchant, error)
	// SetVerificationToken replaces the token while the email is unverified.
	SetVerificationToken(ctx context.Context, id uuid.UUID, tokenDigest string, expiresAt, at time.Time) (bool, error)

	// UpdateStatus moves the merchant from -> to only if its current status is
	// still from. Returns (nil, nil) when the guard does not match.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.MerchantStatus, change StatusChange) (*domain.Merchant, error)

	// UpdateKycStatus applies change only if the current KYC status is one of
	// from. Returns (nil, nil) when the guard does not match.
	UpdateKycStatus(ctx context.Context, id uuid.UUID, from []domain.KycStatus, change KycChange) (*domain.Merchant, error)

	// UpdateBankAccountStatus records a verification outcome for the account
	// at version. It matches only while that account is still stored and not
	// yet VERIFIED; otherwise it returns (nil, nil).
	UpdateBankAccountStatus(ctx context.Context, id uuid.UUID, version int64, status domain.BankAccountStatus, verifiedAt *time.Time) (*domain.Merchant, error)

	// IncrementApiQuota atomically adds one unit if used < limit. ok is false
	// when the quota is exhausted or the merchant does not exist.
	IncrementApiQuota(ctx context.Context, id uuid.UUID) (quota domain.APIQuota, ok bool, err error)
	ResetApiQuotas(ctx context.Context, now, nextReset time.Time) (int64, error)
	UpdateApiQuotaLimit(ctx context.Context, id uuid.UUID, limit int64) (*domain.Merchant, error)

	FindExpiredVerificationTokens(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	// ClearVerificationTokens removes tokens for the given merchants that are
	// still unverified and expired at now.
	ClearVerificationTokens(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error)

	Search(ctx context.Context, params MerchantSearchParams) ([]domain.Merchant, int64, error)
	GetStatistics(ctx context.Context) (*MerchantStats, error)
}

// StatusChange carries the side fields written alongside a status move.
type StatusChange struct {
	Reason *string
	At     time.Time
}

// KycChange describes a conditional KYC status update.
type KycChange struct {
	To              domain.KycStatus
	Documents       []domain.KycDocument // nil leaves documents untouched
	RejectionReason *string              // always written; nil clears
	SubmittedAt     *time.Time           // nil leaves the column untouched
	VerifiedAt      *time.Time           // nil leaves the column untouched
	// ActivateMerchant flips status PENDING -> ACTIVE in the same write when
	// the email is verified.
	ActivateMerchant bool
	At               time.Time
}

// MerchantPatch is the set of columns one merchant operation owns. Nil fields
// are left as stored; a pointer to "" clears a nullable text column.
type MerchantPatch struct {
	Name    *string
	Phone   *string
	Website *string

	BusinessName               *string
	BusinessType               *string
	BusinessRegistrationNumber *string
	TaxID                      *string
	BusinessDescription        *string
	BusinessCategory           *string

	AddressLine1 *string
	AddressLine2 *string
	City         *string
	State        *string
	PostalCode   *string
	Country      *string

	// BankAccount replaces every bank column, resets verification to
	// PENDING and bumps the bank account version.
	BankAccount *domain.BankAccount

	Settlement    *SettlementRequest   // merged key by key
	Notifications *NotificationRequest // merged key by key

	SupportedCurrencies []string
	DefaultCurrency     *string

	RequireWritable bool
	At              time.Time
}

// MerchantSearchParams holds filter + pagination for listing merchants.
type MerchantSearchParams struct {
	Query        string // matches name, email or business name
	Status       *domain.MerchantStatus
	KycStatus    *domain.KycStatus
	BusinessType *string
	Country      *string
	Page         int
	Limit        int
}

// MerchantStats holds aggregated counts for the admin dashboard.
type MerchantStats struct {
	Total         int64                              `json:"total"`
	EmailVerified int64                              `json:"email_verified"`
	ByStatus      map[domain.MerchantStatus]int64    `json:"by_status"`
	ByKycStatus   map[domain.KycStatus]int64         `json:"by_kyc_status"`
	ByBankStatus  map[domain.BankAccountStatus]int64 `json:"by_bank_account_status"`
}

// AdminUserRepository defines persistence for admin-panel users.
type AdminUserRepository interface {
	Create(ctx context.Context, user *domain.AdminUser) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AdminUser, error)
	GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
}

// AdminSessionRepository defines persistence for admin refresh sessions.
type AdminSessionRepository interface {
	Create(ctx context.Context, session *domain.AdminSession) error
	GetActiveByRefreshToken(ctx context.Context, refreshToken string) (*domain.AdminSession, error)
	// Deactivate marks the active session holding refreshToken inactive.
	// Returns false when no active session matched.
	Deactivate(ctx context.Context, refreshToken string, at time.Time) (bool, error)
}

// LoginAttemptRepository records admin login attempts.
type LoginAttemptRepository interface {
	Create(ctx context.Context, attempt *domain.LoginAttempt) error
	// CountRecentFailures counts failures for email after both since and the
	// most recent successful attempt.
	CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// NewMerchantStats returns stats with every known state present at zero.
func NewMerchantStats() *MerchantStats {
	s := &MerchantStats{
		ByStatus:     make(map[domain.MerchantStatus]int64),
		ByKycStatus:  make(map[domain.KycStatus]int64),
		ByBankStatus: make(map[domain.BankAccountStatus]int64),
	}
	for _, st := range domain.AllMerchantStatuses() {
		s.ByStatus[st] = 0
	}
	for _, st := range domain.AllKycStatuses() {
		s.ByKycStatus[st] = 0
	}
	for _, st := range domain.AllBankAccountStatuses() {
		s.ByBankStatus[st] = 0
	}
	return s
}

// Add counts n merchants sharing the given states.
func (s *MerchantStats) Add(status domain.MerchantStatus, kyc domain.KycStatus, bank domain.BankAccountStatus, emailVerified bool, n int64) {
	s.Total += n
	if emailVerified {
		s.EmailVerified += n
	}
	s.ByStatus[status] += n
	s.ByKycStatus[kyc] += n
	s.ByBankStatus[bank] += n
}
