// Package memory provides mutex-guarded in-process implementations of the
// repository ports. It backs storage.driver=memory and the API tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"

	"github.com/google/uuid"
)

// MerchantRepo implements ports.MerchantRepository on a map. Every read
// returns a copy so callers never share state with the store.
type MerchantRepo struct {
	mu        sync.RWMutex
	merchants map[uuid.UUID]*domain.Merchant
	now       func() time.Time
}

// NewMerchantRepo creates an empty in-memory merchant store.
func NewMerchantRepo() *MerchantRepo {
	return &MerchantRepo{
		merchants: make(map[uuid.UUID]*domain.Merchant),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *MerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.merchants {
		if strings.EqualFold(existing.Email, m.Email) {
			return fmt.Errorf("insert merchant: %w", ports.ErrDuplicateEmail)
		}
	}
	r.merchants[m.ID] = cloneMerchant(m)
	return nil
}

func (r *MerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.merchants[id]
	if !ok {
		return nil, nil
	}
	return cloneMerchant(m), nil
}

func (r *MerchantRepo) GetByEmail(ctx context.Context, email string) (*domain.Merchant, error) {
	return r.find(func(m *domain.Merchant) bool { return strings.EqualFold(m.Email, email) }), nil
}

func (r *MerchantRepo) GetByVerificationToken(ctx context.Context, tokenDigest string) (*domain.Merchant, error) {
	return r.find(func(m *domain.Merchant) bool {
		return m.EmailVerificationToken != nil && *m.EmailVerificationToken == tokenDigest
	}), nil
}

func (r *MerchantRepo) find(match func(*domain.Merchant) bool) *domain.Merchant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.merchants {
		if match(m) {
			return cloneMerchant(m)
		}
	}
	return nil
}

// Patch applies the set fields of patch under the write lock.
func (r *MerchantRepo) Patch(ctx context.Context, id uuid.UUID, patch ports.MerchantPatch) (*domain.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[id]
	if !ok {
		return nil, nil
	}
	if patch.RequireWritable &&
		(m.Status == domain.MerchantStatusSuspended || m.Status == domain.MerchantStatusClosed) {
		return nil, nil
	}

	if patch.Name != nil {
		m.Name = *patch.Name
	}
	for _, f := range []struct {
		dst **string
		v   *string
	}{
		{&m.Phone, patch.Phone},
		{&m.Website, patch.Website},
		{&m.BusinessName, patch.BusinessName},
		{&m.BusinessType, patch.BusinessType},
		{&m.BusinessRegistrationNumber, patch.BusinessRegistrationNumber},
		{&m.TaxID, patch.TaxID},
		{&m.BusinessDescription, patch.BusinessDescription},
		{&m.BusinessCategory, patch.BusinessCategory},
		{&m.AddressLine1, patch.AddressLine1},
		{&m.AddressLine2, patch.AddressLine2},
		{&m.City, patch.City},
		{&m.State, patch.State},
		{&m.PostalCode, patch.PostalCode},
		{&m.Country, patch.Country},
	} {
		setNullable(f.dst, f.v)
	}

	if patch.BankAccount != nil {
		m.BankAccount = *patch.BankAccount
		m.BankAccountStatus = domain.BankAccountStatusPending
		m.BankVerifiedAt = nil
		m.BankAccountVersion++
	}
	if patch.Settlement != nil {
		patch.Settlement.ApplyTo(&m.Settlement)
	}
	if patch.Notifications != nil {
		patch.Notifications.ApplyTo(&m.Notifications)
	}
	if patch.SupportedCurrencies != nil {
		m.SupportedCurrencies = slices.Clone(patch.SupportedCurrencies)
	}
	if patch.DefaultCurrency != nil {
		m.DefaultCurrency = *patch.DefaultCurrency
	}
	m.UpdatedAt = patch.At
	return cloneMerchant(m), nil
}

func (r *MerchantRepo) MarkEmailVerified(ctx context.Context, id uuid.UUID, tokenDigest string, at time.Time) (*domain.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[id]
	if !ok || m.EmailVerified || m.EmailVerificationToken == nil || *m.EmailVerificationToken != tokenDigest ||
		m.EmailVerificationExpiresAt == nil || !m.EmailVerificationExpiresAt.After(at) {
		return nil, nil
	}
	m.EmailVerified = true
	m.EmailVerifiedAt = &at
	m.EmailVerificationToken = nil
	m.EmailVerificationExpiresAt = nil
	m.UpdatedAt = at
	return cloneMerchant(m), nil
}

func (r *MerchantRepo) SetVerificationToken(ctx context.Context, id uuid.UUID, tokenDigest string, expiresAt, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[id]
	if !ok || m.EmailVerified {
		return false, nil
	}
	m.EmailVerificationToken = &tokenDigest
	m.EmailVerificationExpiresAt = &expiresAt
	m.UpdatedAt = at
	return true, nil
}

func (r *MerchantRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.MerchantStatus, change ports.StatusChange) (*domain.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[id]
	if !ok || m.Status != from {
		return nil, nil
	}

	m.Status = to
	m.SuspensionReason = nil
	switch to {
	case domain.MerchantStatusSuspended:
		m.SuspensionReason = change.Reason
	case domain.MerchantStatusClosed:
		m.ClosedReason = change.Reason
		at := change.At
		m.ClosedAt = &at
	}
	m.UpdatedAt = change.At
	return cloneMerchant(m), nil
}

func (r *MerchantRepo) UpdateKycStatus(ctx context.Context, id uuid.UUID, from []domain.KycStatus, change ports.KycChange) (*domain.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[id]
	if !ok || !slices.Contains(from, m.KycStatus) {
		return nil, nil
	}

	m.KycStatus = change.To
	if change.Documents != nil {
		m.KycDocuments = slices.Clone(change.Documents)
	}
	m.KycRejectionReason = change.RejectionReason
	if change.SubmittedAt != nil {
		m.KycSubmittedAt = change.SubmittedAt
	}
	if change.VerifiedAt != nil {
		m.KycVerifiedAt = change.VerifiedAt
	}
	if change.ActivateMerchant && m.Status == domain.MerchantStatusPending && m.EmailVerified {
		m.Status = domain.MerchantStatusActive
	}
	m.UpdatedAt = change.At
	return cloneMerchant(m), nil
}

func (r *MerchantRepo) UpdateBankAccountStatus(ctx context.Context, id uuid.UUID, version int64, status domain.BankAccountStatus, verifiedAt *time.Time) (*domain.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[id]
	if !ok || m.BankAccountVersion != version || m.BankAccountStatus == domain.BankAccountStatusVerified {
		return nil, nil
	}
	m.BankAccountStatus = status
	m.BankVerifiedAt = verifiedAt
	m.UpdatedAt = r.now()
	return cloneMerchant(m), nil
}

func (r *MerchantRepo) IncrementApiQuota(ctx context.Context, id uuid.UUID) (domain.APIQuota, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[id]
	if !ok || m.ApiQuotaUsed >= m.ApiQuotaLimit {
		return domain.APIQuota{}, false, nil
	}
	m.ApiQuotaUsed++
	return m.Quota(), true, nil
}

func (r *MerchantRepo) ResetApiQuotas(ctx context.Context, now, nextReset time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.merchants {
		if m.ApiQuotaUsed > 0 || !m.ApiQuotaResetAt.After(now) {
			m.ApiQuotaUsed = 0
			m.ApiQuotaResetAt = nextReset
			n++
		}
	}
	return n, nil
}

func (r *MerchantRepo) UpdateApiQuotaLimit(ctx context.Context, id uuid.UUID, limit int64) (*domain.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[id]
	if !ok {
		return nil, nil
	}
	m.ApiQuotaLimit = limit
	m.UpdatedAt = r.now()
	return cloneMerchant(m), nil
}

func (r *MerchantRepo) FindExpiredVerificationTokens(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var expired []*domain.Merchant
	for _, m := range r.merchants {
		if tokenExpired(m, now) {
			expired = append(expired, m)
		}
	}
	slices.SortFunc(expired, func(a, b *domain.Merchant) int {
		return a.EmailVerificationExpiresAt.Compare(*b.EmailVerificationExpiresAt)
	})
	if len(expired) > limit {
		expired = expired[:limit]
	}
	ids := make([]uuid.UUID, len(expired))
	for i, m := range expired {
		ids[i] = m.ID
	}
	return ids, nil
}

func (r *MerchantRepo) ClearVerificationTokens(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		m, ok := r.merchants[id]
		if !ok || !tokenExpired(m, now) {
			continue
		}
		m.EmailVerificationToken = nil
		m.EmailVerificationExpiresAt = nil
		n++
	}
	return n, nil
}

func tokenExpired(m *domain.Merchant, now time.Time) bool {
	return !m.EmailVerified && m.EmailVerificationToken != nil &&
		m.EmailVerificationExpiresAt != nil && m.EmailVerificationExpiresAt.Before(now)
}

// Search filters and pages merchants newest first.
func (r *MerchantRepo) Search(ctx context.Context, p ports.MerchantSearchParams) ([]domain.Merchant, int64, error) {
	r.mu.RLock()
	var matched []*domain.Merchant
	for _, m := range r.merchants {
		if matchesSearch(m, p) {
			matched = append(matched, cloneMerchant(m))
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *domain.Merchant) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	total := int64(len(matched))
	start := min(max((p.Page-1)*p.Limit, 0), len(matched))
	end := min(start+p.Limit, len(matched))

	out := make([]domain.Merchant, 0, end-start)
	for _, m := range matched[start:end] {
		out = append(out, *m)
	}
	return out, total, nil
}

func matchesSearch(m *domain.Merchant, p ports.MerchantSearchParams) bool {
	if q := strings.ToLower(p.Query); q != "" {
		if !strings.Contains(strings.ToLower(m.Name), q) &&
			!strings.Contains(strings.ToLower(m.Email), q) &&
			!(m.BusinessName != nil && strings.Contains(strings.ToLower(*m.BusinessName), q)) {
			return false
		}
	}
	if p.Status != nil && m.Status != *p.Status {
		return false
	}
	if p.KycStatus != nil && m.KycStatus != *p.KycStatus {
		return false
	}
	if p.BusinessType != nil && (m.BusinessType == nil || *m.BusinessType != *p.BusinessType) {
		return false
	}
	if p.Country != nil && (m.Country == nil || *m.Country != strings.ToUpper(*p.Country)) {
		return false
	}
	return true
}

func (r *MerchantRepo) GetStatistics(ctx context.Context) (*ports.MerchantStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := ports.NewMerchantStats()
	for _, m := range r.merchants {
		stats.Add(m.Status, m.KycStatus, m.BankAccountStatus, m.EmailVerified, 1)
	}
	return stats, nil
}

// setNullable copies a set value into dst; "" clears it.
func setNullable(dst **string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		*dst = nil
		return
	}
	c := *v
	*dst = &c
}

func cloneMerchant(m *domain.Merchant) *domain.Merchant {
	c := *m
	c.SupportedCurrencies = slices.Clone(m.SupportedCurrencies)
	c.KycDocuments = slices.Clone(m.KycDocuments)
	if c.SupportedCurrencies == nil {
		c.SupportedCurrencies = []string{}
	}
	if c.KycDocuments == nil {
		c.KycDocuments = []domain.KycDocument{}
	}
	return &c
}
