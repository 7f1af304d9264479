package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"
	"merchant-service/pkg/apperror"
	"merchant-service/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	verificationTokenBytes = 32
	minPasswordLength      = 8
	defaultCurrency        = "USD"
)

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// MerchantServiceConfig holds the tunable lifecycle parameters.
type MerchantServiceConfig struct {
	VerificationTokenTTL time.Duration
	DefaultAPIQuota      int64
	QuotaPeriod          time.Duration
	StatsCacheTTL        time.Duration
	BankCountry          string
}

// DefaultMerchantServiceConfig returns the production defaults.
func DefaultMerchantServiceConfig() MerchantServiceConfig {
	return MerchantServiceConfig{
		VerificationTokenTTL: 24 * time.Hour,
		DefaultAPIQuota:      1000,
		QuotaPeriod:          24 * time.Hour,
		StatsCacheTTL:        60 * time.Second,
		BankCountry:          "US",
	}
}

// MerchantServiceImpl implements ports.MerchantService.
type MerchantServiceImpl struct {
	repo       ports.MerchantRepository
	hashSvc    ports.HashService
	digestSvc  ports.DigestService
	tokenSvc   ports.TokenService
	notifier   ports.NotificationSender
	bank       ports.BankVerifier
	statsCache ports.StatsCache // optional
	cfg        MerchantServiceConfig
	metrics    *metrics.Metrics
	log        zerolog.Logger
	now        func() time.Time
}

// NewMerchantService creates a new MerchantServiceImpl. statsCache and m may be nil.
func NewMerchantService(
	repo ports.MerchantRepository,
	hashSvc ports.HashService,
	digestSvc ports.DigestService,
	tokenSvc ports.TokenService,
	notifier ports.NotificationSender,
	bank ports.BankVerifier,
	statsCache ports.StatsCache,
	cfg MerchantServiceConfig,
	m *metrics.Metrics,
	log zerolog.Logger,
) *MerchantServiceImpl {
	return &MerchantServiceImpl{
		repo:       repo,
		hashSvc:    hashSvc,
		digestSvc:  digestSvc,
		tokenSvc:   tokenSvc,
		notifier:   notifier,
		bank:       bank,
		statsCache: statsCache,
		cfg:        cfg,
		metrics:    m,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a PENDING merchant and emails a verification token.
func (s *MerchantServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*domain.Merchant, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if name == "" || email == "" {
		return nil, apperror.Validation("name and email are required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperror.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		s.metrics.MerchantRegistered("duplicate")
		return nil, apperror.ErrAlreadyExists("Merchant").WithDetail("email", email)
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	token, err := generateRandomHex(verificationTokenBytes)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate verification token: %w", err))
	}

	now := s.now()
	digest := s.digestSvc.Digest(token)
	expiresAt := now.Add(s.cfg.VerificationTokenTTL)
	merchant := &domain.Merchant{
		ID:                         uuid.New(),
		Email:                      email,
		Name:                       name,
		PasswordHash:               passwordHash,
		Phone:                      trimmed(req.Phone),
		Website:                    trimmed(req.Website),
		BusinessName:               trimmed(req.BusinessName),
		BusinessType:               trimmed(req.BusinessType),
		Country:                    upper(req.Country),
		Status:                     domain.MerchantStatusPending,
		KycStatus:                  domain.KycStatusNotStarted,
		BankAccountStatus:          domain.BankAccountStatusNotVerified,
		EmailVerificationToken:     &digest,
		EmailVerificationExpiresAt: &expiresAt,
		SupportedCurrencies:        []string{defaultCurrency},
		DefaultCurrency:            defaultCurrency,
		Settlement:                 domain.DefaultSettlementPreferences(),
		Notifications:              domain.DefaultNotificationPreferences(),
		ApiQuotaLimit:              s.cfg.DefaultAPIQuota,
		ApiQuotaResetAt:            now.Add(s.cfg.QuotaPeriod),
		KycDocuments:               []domain.KycDocument{},
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}

	if err := s.repo.Create(ctx, merchant); err != nil {
		if errors.Is(err, ports.ErrDuplicateEmail) {
			s.metrics.MerchantRegistered("duplicate")
			return nil, apperror.ErrAlreadyExists("Merchant").WithDetail("email", email)
		}
		return nil, apperror.InternalError(fmt.Errorf("create merchant: %w", err))
	}
	s.metrics.MerchantRegistered("created")

	s.notify(merchant, "verification", s.notifier.SendVerificationEmail(ctx, merchant, token))

	s.log.Info().Str("merchant_id", merchant.ID.String()).Msg("merchant registered")
	return merchant, nil
}

// Login validates merchant credentials and returns an access token.
func (s *MerchantServiceImpl) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	merchant, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find merchant: %w", err))
	}
	if merchant == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, merchant.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	if err := ensureMutable(merchant); err != nil {
		return "", time.Time{}, err
	}

	token, expiry, err := s.tokenSvc.Generate(merchant.ID, merchant.Email)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}
	return token, expiry, nil
}

// VerifyEmail consumes a verification token.
func (s *MerchantServiceImpl) VerifyEmail(ctx context.Context, token string) (*domain.Merchant, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperror.ErrTokenInvalid()
	}

	digest := s.digestSvc.Digest(token)
	merchant, err := s.repo.GetByVerificationToken(ctx, digest)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find by token: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrTokenInvalid()
	}
	if merchant.EmailVerified {
		return nil, apperror.ErrEmailAlreadyVerified()
	}

	now := s.now()
	if merchant.EmailVerificationExpiresAt == nil || !now.Before(*merchant.EmailVerificationExpiresAt) {
		return nil, apperror.ErrTokenExpired()
	}

	verified, err := s.repo.MarkEmailVerified(ctx, merchant.ID, digest, now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark email verified: %w", err))
	}
	if verified == nil {
		// Consumed or replaced since the lookup.
		return nil, apperror.ErrTokenInvalid()
	}

	s.notify(verified, "welcome", s.notifier.SendWelcomeEmail(ctx, verified))
	return verified, nil
}

// ResendVerification issues a fresh token, invalidating the previous one.
func (s *MerchantServiceImpl) ResendVerification(ctx context.Context, email string) error {
	merchant, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return apperror.InternalError(fmt.Errorf("find merchant: %w", err))
	}
	if merchant == nil {
		return apperror.ErrNotFound("Merchant")
	}
	if merchant.EmailVerified {
		return apperror.ErrEmailAlreadyVerified()
	}

	token, err := generateRandomHex(verificationTokenBytes)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("generate verification token: %w", err))
	}
	digest := s.digestSvc.Digest(token)
	now := s.now()
	expiresAt := now.Add(s.cfg.VerificationTokenTTL)

	ok, err := s.repo.SetVerificationToken(ctx, merchant.ID, digest, expiresAt, now)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("set verification token: %w", err))
	}
	if !ok {
		return apperror.ErrEmailAlreadyVerified()
	}
	merchant.EmailVerificationToken = &digest
	merchant.EmailVerificationExpiresAt = &expiresAt

	s.notify(merchant, "verification", s.notifier.SendVerificationEmail(ctx, merchant, token))
	return nil
}

// GetProfile returns the merchant or NotFound.
func (s *MerchantServiceImpl) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	return s.load(ctx, id)
}

func (s *MerchantServiceImpl) UpdateProfile(ctx context.Context, id uuid.UUID, req ports.UpdateProfileRequest) (*domain.Merchant, error) {
	patch := ports.MerchantPatch{
		Phone:           clearable(req.Phone),
		Website:         clearable(req.Website),
		RequireWritable: true,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.Validation("name cannot be empty")
		}
		patch.Name = &name
	}
	return s.apply(ctx, id, patch)
}

func (s *MerchantServiceImpl) UpdateBusinessDetails(ctx context.Context, id uuid.UUID, req ports.UpdateBusinessRequest) (*domain.Merchant, error) {
	if err := validateIdentifierLength("business registration number", req.BusinessRegistrationNumber); err != nil {
		return nil, err
	}
	if err := validateIdentifierLength("tax id", req.TaxID); err != nil {
		return nil, err
	}

	return s.apply(ctx, id, ports.MerchantPatch{
		BusinessName:               clearable(req.BusinessName),
		BusinessType:               clearable(req.BusinessType),
		BusinessRegistrationNumber: clearable(req.BusinessRegistrationNumber),
		TaxID:                      clearable(req.TaxID),
		BusinessDescription:        clearable(req.BusinessDescription),
		BusinessCategory:           clearable(req.BusinessCategory),
		RequireWritable:            true,
	})
}

func (s *MerchantServiceImpl) UpdateAddress(ctx context.Context, id uuid.UUID, req ports.UpdateAddressRequest) (*domain.Merchant, error) {
	patch := ports.MerchantPatch{
		AddressLine1:    clearable(req.AddressLine1),
		AddressLine2:    clearable(req.AddressLine2),
		City:            clearable(req.City),
		State:           clearable(req.State),
		PostalCode:      clearable(req.PostalCode),
		Country:         clearable(req.Country),
		RequireWritable: true,
	}
	if patch.Country != nil {
		*patch.Country = strings.ToUpper(*patch.Country)
	}
	return s.apply(ctx, id, patch)
}

func (s *MerchantServiceImpl) UpdateSettlementPreferences(ctx context.Context, id uuid.UUID, req ports.SettlementRequest) (*domain.Merchant, error) {
	if req.Frequency != nil && !req.Frequency.IsValid() {
		return nil, apperror.Validation("settlement frequency must be one of daily, weekly, monthly")
	}
	if req.MinimumAmount != nil && *req.MinimumAmount < 0 {
		return nil, apperror.Validation("minimum settlement amount cannot be negative")
	}
	return s.apply(ctx, id, ports.MerchantPatch{Settlement: &req, RequireWritable: true})
}

// UpdateNotificationPreferences merges req over the stored preferences. It is
// allowed in every account status.
func (s *MerchantServiceImpl) UpdateNotificationPreferences(ctx context.Context, id uuid.UUID, req ports.NotificationRequest) (*domain.Merchant, error) {
	return s.apply(ctx, id, ports.MerchantPatch{Notifications: &req})
}

// UpdateCurrencySettings replaces the currency set. The default currency is
// always added to the supported set.
func (s *MerchantServiceImpl) UpdateCurrencySettings(ctx context.Context, id uuid.UUID, req ports.CurrencyRequest) (*domain.Merchant, error) {
	def := strings.ToUpper(strings.TrimSpace(req.DefaultCurrency))
	if !currencyCodePattern.MatchString(def) {
		return nil, apperror.Validation("default currency must be a 3-letter ISO code")
	}

	supported := make([]string, 0, len(req.SupportedCurrencies)+1)
	for _, c := range req.SupportedCurrencies {
		code := strings.ToUpper(strings.TrimSpace(c))
		if !currencyCodePattern.MatchString(code) {
			return nil, apperror.Validation(fmt.Sprintf("invalid currency code %q", c))
		}
		if !slices.Contains(supported, code) {
			supported = append(supported, code)
		}
	}
	if !slices.Contains(supported, def) {
		supported = append(supported, def)
	}

	return s.apply(ctx, id, ports.MerchantPatch{
		SupportedCurrencies: supported,
		DefaultCurrency:     &def,
		RequireWritable:     true,
	})
}

// UpdateStatus applies an admin status transition from the status table.
func (s *MerchantServiceImpl) UpdateStatus(ctx context.Context, id uuid.UUID, target domain.MerchantStatus, reason string) (*domain.Merchant, error) {
	if !target.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown merchant status %q", target))
	}

	merchant, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := merchant.Status
	if !from.CanTransitionTo(target) {
		return nil, apperror.ErrInvalidStatus(string(from), string(target))
	}

	reason = strings.TrimSpace(reason)
	change := ports.StatusChange{At: s.now()}
	if reason != "" {
		change.Reason = &reason
	}

	updated, err := s.repo.UpdateStatus(ctx, id, from, target, change)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update status: %w", err))
	}
	if updated == nil {
		// Lost a race with another status change.
		current := from
		if fresh, ferr := s.repo.GetByID(ctx, id); ferr == nil && fresh != nil {
			current = fresh.Status
		}
		return nil, apperror.ErrInvalidStatus(string(current), string(target))
	}
	s.metrics.StatusTransition(string(from), string(target))

	s.log.Info().
		Str("merchant_id", id.String()).
		Str("from", string(from)).
		Str("to", string(target)).
		Msg("merchant status changed")

	switch {
	case target == domain.MerchantStatusSuspended:
		s.notify(updated, "suspension", s.notifier.SendSuspensionEmail(ctx, updated, reason))
	case from == domain.MerchantStatusSuspended && target == domain.MerchantStatusActive:
		s.notify(updated, "reactivation", s.notifier.SendReactivationEmail(ctx, updated))
	}
	return updated, nil
}

func (s *MerchantServiceImpl) Activate(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	return s.UpdateStatus(ctx, id, domain.MerchantStatusActive, "")
}

func (s *MerchantServiceImpl) Suspend(ctx context.Context, id uuid.UUID, reason string) (*domain.Merchant, error) {
	return s.UpdateStatus(ctx, id, domain.MerchantStatusSuspended, reason)
}

func (s *MerchantServiceImpl) Close(ctx context.Context, id uuid.UUID, reason string) (*domain.Merchant, error) {
	return s.UpdateStatus(ctx, id, domain.MerchantStatusClosed, reason)
}

// --- helpers ---

func (s *MerchantServiceImpl) load(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	merchant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get merchant: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("Merchant").WithDetail("merchant_id", id.String())
	}
	return merchant, nil
}

// apply writes patch. When the row no longer matches, the current state
// decides the error: NotFound, Suspended or Closed.
func (s *MerchantServiceImpl) apply(ctx context.Context, id uuid.UUID, patch ports.MerchantPatch) (*domain.Merchant, error) {
	patch.At = s.now()
	merchant, err := s.repo.Patch(ctx, id, patch)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update merchant: %w", err))
	}
	if merchant != nil {
		return merchant, nil
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureMutable(current); err != nil {
		return nil, err
	}

	// Reactivated between the write and the reload; try once more.
	merchant, err = s.repo.Patch(ctx, id, patch)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update merchant: %w", err))
	}
	if merchant == nil {
		return nil, apperror.InternalError(fmt.Errorf("update merchant %s: row did not match", id))
	}
	return merchant, nil
}

// notify logs a failed best-effort email. It never returns an error.
func (s *MerchantServiceImpl) notify(merchant *domain.Merchant, kind string, err error) {
	if err == nil {
		return
	}
	s.metrics.EmailFailed(kind)
	s.log.Warn().
		Err(err).
		Str("merchant_id", merchant.ID.String()).
		Str("email_kind", kind).
		Msg("failed to send email")
}

func ensureMutable(m *domain.Merchant) error {
	switch m.Status {
	case domain.MerchantStatusSuspended:
		reason := ""
		if m.SuspensionReason != nil {
			reason = *m.SuspensionReason
		}
		return apperror.ErrSuspended(reason)
	case domain.MerchantStatusClosed:
		return apperror.ErrClosed()
	}
	return nil
}

func validateIdentifierLength(field string, v *string) error {
	if v == nil {
		return nil
	}
	n := len(strings.TrimSpace(*v))
	if n < 5 || n > 50 {
		return apperror.Validation(fmt.Sprintf("%s must be between 5 and 50 characters", field)).
			WithDetail("field", field)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// trimmed returns nil for nil or blank input.
func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func upper(v *string) *string {
	t := trimmed(v)
	if t == nil {
		return nil
	}
	u := strings.ToUpper(*t)
	return &u
}

// clearable trims a set value; a blank result clears the column.
func clearable(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

// generateRandomHex generates a random hex string of n bytes.
func generateRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
