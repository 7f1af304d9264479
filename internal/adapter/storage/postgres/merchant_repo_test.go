package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// prefixCipher stands in for AES so stored values are recognisable.
type prefixCipher struct{}

func (prefixCipher) Encrypt(s string) (string, error) { return "enc:" + s, nil }
func (prefixCipher) Decrypt(s string) (string, error) {
	if !strings.HasPrefix(s, "enc:") {
		return "", errors.New("not encrypted")
	}
	return strings.TrimPrefix(s, "enc:"), nil
}

// encryptedArg matches a *string query argument holding want.
type encryptedArg struct{ want string }

func (a encryptedArg) Match(v any) bool {
	p, ok := v.(*string)
	return ok && p != nil && *p == a.want
}

func strPtr(s string) *string { return &s }

func newTestMerchant() *domain.Merchant {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Merchant{
		ID:                uuid.New(),
		Email:             "shop@example.com",
		Name:              "Corner Shop",
		PasswordHash:      "$2a$10$hash",
		Country:           strPtr("US"),
		Status:            domain.MerchantStatusActive,
		KycStatus:         domain.KycStatusApproved,
		BankAccountStatus: domain.BankAccountStatusPending,
		EmailVerified:     true,
		BankAccount: domain.BankAccount{
			AccountNumber: strPtr("000123456789"),
			RoutingNumber: strPtr("110000000"),
			IBAN:          strPtr("GB29NWBK60161331926819"),
		},
		SupportedCurrencies: []string{"USD", "EUR"},
		DefaultCurrency:     "USD",
		Settlement:          domain.SettlementPreferences{Frequency: domain.SettlementWeekly, MinimumAmount: 1000},
		Notifications:       domain.DefaultNotificationPreferences(),
		ApiQuotaUsed:        3,
		ApiQuotaLimit:       1000,
		ApiQuotaResetAt:     now.Add(24 * time.Hour),
		KycDocuments: []domain.KycDocument{
			{Type: domain.KycDocGovernmentID, FileName: "id.pdf", FileURL: "https://files.example.com/id.pdf", UploadedAt: now, Status: domain.KycDocumentApproved},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func merchantColumnNames() []string {
	parts := strings.Split(merchantColumns, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func encPtr(v *string) *string {
	if v == nil {
		return nil
	}
	return strPtr("enc:" + *v)
}

func merchantRow(t *testing.T, m *domain.Merchant) *pgxmock.Rows {
	return pgxmock.NewRows(merchantColumnNames()).AddRow(
		m.ID, m.Email, m.Name, m.PasswordHash, m.Phone, m.Website,
		m.BusinessName, m.BusinessType, m.BusinessRegistrationNumber, m.TaxID, m.BusinessDescription, m.BusinessCategory,
		m.AddressLine1, m.AddressLine2, m.City, m.State, m.PostalCode, m.Country,
		m.Status, m.KycStatus, m.BankAccountStatus,
		m.EmailVerified, m.EmailVerificationToken, m.EmailVerificationExpiresAt, m.EmailVerifiedAt,
		encPtr(m.BankAccount.AccountNumber), m.BankAccount.RoutingNumber, m.BankAccount.HolderName,
		m.BankAccount.BankName, m.BankAccount.SwiftCode, encPtr(m.BankAccount.IBAN), m.BankAccountVersion,
		m.SupportedCurrencies, m.DefaultCurrency, mustJSON(t, m.Settlement), mustJSON(t, m.Notifications),
		m.ApiQuotaUsed, m.ApiQuotaLimit, m.ApiQuotaResetAt,
		mustJSON(t, m.KycDocuments), m.KycRejectionReason, m.SuspensionReason, m.ClosedReason,
		m.CreatedAt, m.UpdatedAt, m.ClosedAt, m.KycSubmittedAt, m.KycVerifiedAt, m.BankVerifiedAt,
	)
}

// anyArgs matches n arguments of any value.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

// jsonArg matches a JSON document argument equal to want.
type jsonArg struct{ want map[string]any }

func (a jsonArg) Match(v any) bool {
	b, ok := v.([]byte)
	if !ok {
		return false
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		return false
	}
	return reflect.DeepEqual(a.want, got)
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *MerchantRepo) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewMerchantRepo(mock, prefixCipher{})
}

func TestMerchantRepo_Create_EncryptsBankFields(t *testing.T) {
	mock, repo := newMockRepo(t)
	m := newTestMerchant()

	args := anyArgs(len(merchantColumnNames()))
	args[25] = encryptedArg{"enc:000123456789"}
	args[30] = encryptedArg{"enc:GB29NWBK60161331926819"}

	mock.ExpectExec("INSERT INTO merchants").
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), m))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_Create_DuplicateEmail(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectExec("INSERT INTO merchants").
		WithArgs(anyArgs(len(merchantColumnNames()))...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "merchants_email_lower_idx"})

	err := repo.Create(context.Background(), newTestMerchant())
	assert.ErrorIs(t, err, ports.ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_GetByID_DecodesRow(t *testing.T) {
	mock, repo := newMockRepo(t)
	m := newTestMerchant()

	mock.ExpectQuery("(?s)SELECT .+ FROM merchants WHERE id").
		WithArgs(m.ID).
		WillReturnRows(merchantRow(t, m))

	got, err := repo.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, "000123456789", *got.BankAccount.AccountNumber, "account number is decrypted")
	assert.Equal(t, "GB29NWBK60161331926819", *got.BankAccount.IBAN)
	assert.Equal(t, m.Settlement, got.Settlement)
	assert.Equal(t, m.Notifications, got.Notifications)
	require.Len(t, got.KycDocuments, 1)
	assert.Equal(t, domain.KycDocGovernmentID, got.KycDocuments[0].Type)
	assert.Equal(t, []string{"USD", "EUR"}, got.SupportedCurrencies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_GetByID_NotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery("(?s)SELECT .+ FROM merchants WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(merchantColumnNames()))

	got, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_GetByEmail_CaseInsensitive(t *testing.T) {
	mock, repo := newMockRepo(t)
	m := newTestMerchant()

	mock.ExpectQuery(`WHERE lower\(email\) = lower\(\$1\)`).
		WithArgs("SHOP@example.com").
		WillReturnRows(merchantRow(t, m))

	got, err := repo.GetByEmail(context.Background(), "SHOP@example.com")
	require.NoError(t, err)
	assert.Equal(t, m.Email, got.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_GetByVerificationToken_QueryError(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery("WHERE email_verification_token").
		WithArgs("digest").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByVerificationToken(context.Background(), "digest")
	assert.ErrorContains(t, err, "get merchant by verification token")
}

func TestMerchantRepo_UpdateStatus_GuardMiss(t *testing.T) {
	mock, repo := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`(?s)UPDATE merchants SET .+ WHERE id = \$1 AND status = \$2`).
		WithArgs(id, "ACTIVE", "SUSPENDED", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(merchantColumnNames()))

	got, err := repo.UpdateStatus(context.Background(), id, domain.MerchantStatusActive, domain.MerchantStatusSuspended,
		ports.StatusChange{Reason: strPtr("fraud"), At: time.Now()})
	require.NoError(t, err)
	assert.Nil(t, got, "no row when the status moved underneath")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_UpdateStatus_ReturnsRow(t *testing.T) {
	mock, repo := newMockRepo(t)
	m := newTestMerchant()
	m.Status = domain.MerchantStatusSuspended
	m.SuspensionReason = strPtr("fraud")

	mock.ExpectQuery(`(?s)UPDATE merchants SET .+ RETURNING`).
		WithArgs(m.ID, "ACTIVE", "SUSPENDED", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(merchantRow(t, m))

	got, err := repo.UpdateStatus(context.Background(), m.ID, domain.MerchantStatusActive, domain.MerchantStatusSuspended,
		ports.StatusChange{Reason: strPtr("fraud"), At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, domain.MerchantStatusSuspended, got.Status)
	assert.Equal(t, "fraud", *got.SuspensionReason)
}

func TestMerchantRepo_UpdateKycStatus_PassesGuardSet(t *testing.T) {
	mock, repo := newMockRepo(t)
	m := newTestMerchant()

	mock.ExpectQuery(`kyc_status = ANY\(\$2\)`).
		WithArgs(m.ID, []string{"PENDING", "IN_REVIEW"}, "APPROVED",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), true, pgxmock.AnyArg()).
		WillReturnRows(merchantRow(t, m))

	now := time.Now()
	got, err := repo.UpdateKycStatus(context.Background(), m.ID,
		[]domain.KycStatus{domain.KycStatusPending, domain.KycStatusInReview},
		ports.KycChange{To: domain.KycStatusApproved, Documents: m.KycDocuments, VerifiedAt: &now, ActivateMerchant: true, At: now})
	require.NoError(t, err)
	assert.Equal(t, domain.KycStatusApproved, got.KycStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_IncrementApiQuota(t *testing.T) {
	mock, repo := newMockRepo(t)
	id := uuid.New()
	resetAt := time.Now().Add(time.Hour).UTC()

	mock.ExpectQuery(`api_quota_used < api_quota_limit`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"api_quota_used", "api_quota_limit", "api_quota_reset_at"}).
			AddRow(int64(10), int64(10), resetAt))

	q, ok, err := repo.IncrementApiQuota(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(10), q.Used)
	assert.Zero(t, q.Remaining)

	mock.ExpectQuery(`api_quota_used < api_quota_limit`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"api_quota_used", "api_quota_limit", "api_quota_reset_at"}))

	_, ok, err = repo.IncrementApiQuota(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok, "exhausted quota matches no row")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_ResetApiQuotas(t *testing.T) {
	mock, repo := newMockRepo(t)
	now := time.Now()

	mock.ExpectExec(`SET api_quota_used = 0`).
		WithArgs(now, now.Add(24*time.Hour)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))

	n, err := repo.ResetApiQuotas(context.Background(), now, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestMerchantRepo_ExpiredVerificationTokens(t *testing.T) {
	mock, repo := newMockRepo(t)
	now := time.Now()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectQuery(`SELECT id FROM merchants`).
		WithArgs(now, 500).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(ids[0]).AddRow(ids[1]))
	mock.ExpectExec(`SET email_verification_token = NULL`).
		WithArgs(ids, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	found, err := repo.FindExpiredVerificationTokens(context.Background(), now, 500)
	require.NoError(t, err)
	assert.Equal(t, ids, found)

	n, err := repo.ClearVerificationTokens(context.Background(), found, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.ClearVerificationTokens(context.Background(), nil, now)
	require.NoError(t, err)
	assert.Zero(t, n, "empty batch issues no query")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_Search(t *testing.T) {
	mock, repo := newMockRepo(t)
	m := newTestMerchant()
	status := domain.MerchantStatusActive

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM merchants WHERE .+ILIKE.+ AND status = \$2`).
		WithArgs("shop", "ACTIVE").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(21)))
	mock.ExpectQuery(`ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("shop", "ACTIVE", 20, 20).
		WillReturnRows(merchantRow(t, m))

	got, total, err := repo.Search(context.Background(), ports.MerchantSearchParams{
		Query: "shop", Status: &status, Page: 2, Limit: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(21), total)
	require.Len(t, got, 1)
	assert.Equal(t, m.ID, got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildSearchFilter_NoFilters(t *testing.T) {
	where, args := buildSearchFilter(ports.MerchantSearchParams{Page: 1, Limit: 10})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestMerchantRepo_GetStatistics(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(`GROUP BY status, kyc_status, bank_account_status, email_verified`).
		WillReturnRows(pgxmock.NewRows([]string{"status", "kyc_status", "bank_account_status", "email_verified", "count"}).
			AddRow(domain.MerchantStatusActive, domain.KycStatusApproved, domain.BankAccountStatusVerified, true, int64(4)).
			AddRow(domain.MerchantStatusPending, domain.KycStatusNotStarted, domain.BankAccountStatusNotVerified, false, int64(2)))

	stats, err := repo.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.Total)
	assert.Equal(t, int64(4), stats.EmailVerified)
	assert.Equal(t, int64(4), stats.ByStatus[domain.MerchantStatusActive])
	assert.Equal(t, int64(0), stats.ByStatus[domain.MerchantStatusClosed], "every status is reported")
	assert.Equal(t, int64(2), stats.ByKycStatus[domain.KycStatusNotStarted])
	assert.Equal(t, int64(4), stats.ByBankStatus[domain.BankAccountStatusVerified])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_Patch_WritesOnlyOwnedColumns(t *testing.T) {
	mock, repo := newMockRepo(t)
	m := newTestMerchant()
	at := time.Now().UTC()
	on := true

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE merchants SET name = $2, `+
		`notification_preferences = notification_preferences || $3::jsonb, updated_at = $4 `+
		`WHERE id = $1 AND status NOT IN ('SUSPENDED', 'CLOSED') RETURNING`)).
		WithArgs(m.ID, "Renamed", jsonArg{map[string]any{"sms_notifications": true}}, at).
		WillReturnRows(merchantRow(t, m))

	got, err := repo.Patch(context.Background(), m.ID, ports.MerchantPatch{
		Name:            strPtr("Renamed"),
		Notifications:   &ports.NotificationRequest{SmsNotifications: &on},
		RequireWritable: true,
		At:              at,
	})
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_Patch_GuardMiss(t *testing.T) {
	mock, repo := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`(?s)UPDATE merchants SET .+ WHERE id = \$1 AND status NOT IN`).
		WithArgs(id, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(merchantColumnNames()))

	got, err := repo.Patch(context.Background(), id, ports.MerchantPatch{City: strPtr("Austin"), RequireWritable: true, At: time.Now()})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_Patch_BankAccountResetsVerification(t *testing.T) {
	mock, repo := newMockRepo(t)
	m := newTestMerchant()
	at := time.Now().UTC()

	mock.ExpectQuery(`(?s)bank_account_status = \$8, bank_verified_at = NULL, bank_account_version = bank_account_version \+ 1, updated_at = \$9 WHERE id = \$1 RETURNING`).
		WithArgs(m.ID, encryptedArg{"enc:999988887777"}, pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "PENDING", at).
		WillReturnRows(merchantRow(t, m))

	_, err := repo.Patch(context.Background(), m.ID, ports.MerchantPatch{
		BankAccount: &domain.BankAccount{AccountNumber: strPtr("999988887777"), RoutingNumber: strPtr("110000000")},
		At:          at,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildPatch(t *testing.T) {
	repo := NewMerchantRepo(nil, prefixCipher{})
	id := uuid.New()
	weekly := domain.SettlementWeekly

	sets, args, err := repo.buildPatch(ports.MerchantPatch{
		Name:       strPtr("Renamed"),
		Phone:      strPtr(""),
		Settlement: &ports.SettlementRequest{Frequency: &weekly},
	}, []any{id})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"name = $2",
		"phone = NULLIF($3::text, '')",
		"settlement_preferences = settlement_preferences || $4::jsonb",
	}, sets)
	require.Len(t, args, 4)
	assert.Equal(t, id, args[0])
	assert.JSONEq(t, `{"frequency":"weekly"}`, string(args[3].([]byte)))

	sets, args, err = repo.buildPatch(ports.MerchantPatch{}, nil)
	require.NoError(t, err)
	assert.Empty(t, sets)
	assert.Empty(t, args)
}

func TestMerchantRepo_MarkEmailVerified_GuardMiss(t *testing.T) {
	mock, repo := newMockRepo(t)
	id := uuid.New()
	at := time.Now().UTC()

	mock.ExpectQuery(`(?s)SET\s+email_verified = TRUE.+WHERE id = \$1 AND email_verification_token = \$2\s+AND email_verified = FALSE AND email_verification_expires_at > \$3`).
		WithArgs(id, "digest", at).
		WillReturnRows(pgxmock.NewRows(merchantColumnNames()))

	got, err := repo.MarkEmailVerified(context.Background(), id, "digest", at)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_SetVerificationToken_AlreadyVerified(t *testing.T) {
	mock, repo := newMockRepo(t)
	id := uuid.New()
	at := time.Now().UTC()
	expires := at.Add(24 * time.Hour)

	mock.ExpectExec(`(?s)UPDATE merchants SET email_verification_token = \$2.+WHERE id = \$1 AND email_verified = FALSE`).
		WithArgs(id, "digest", expires, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.SetVerificationToken(context.Background(), id, "digest", expires, at)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_UpdateBankAccountStatus_GuardedOnVersion(t *testing.T) {
	mock, repo := newMockRepo(t)
	id := uuid.New()
	at := time.Now().UTC()

	mock.ExpectQuery(`(?s)WHERE id = \$1 AND bank_account_version = \$2\s+AND bank_account_status IN \('NOT_VERIFIED', 'PENDING', 'FAILED'\)`).
		WithArgs(id, int64(2), "VERIFIED", &at).
		WillReturnRows(pgxmock.NewRows(merchantColumnNames()))

	got, err := repo.UpdateBankAccountStatus(context.Background(), id, 2, domain.BankAccountStatusVerified, &at)
	require.NoError(t, err)
	assert.Nil(t, got, "the account was replaced or already verified")
	assert.NoError(t, mock.ExpectationsWereMet())
}
