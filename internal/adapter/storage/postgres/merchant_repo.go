package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const merchantColumns = `id, email, name, password_hash, phone, website,
	business_name, business_type, business_registration_number, tax_id, business_description, business_category,
	address_line1, address_line2, city, state, postal_code, country,
	status, kyc_status, bank_account_status,
	email_verified, email_verification_token, email_verification_expires_at, email_verified_at,
	bank_account_number_enc, bank_routing_number, bank_account_holder_name, bank_name, bank_swift_code, bank_iban_enc, bank_account_version,
	supported_currencies, default_currency, settlement_preferences, notification_preferences,
	api_quota_used, api_quota_limit, api_quota_reset_at,
	kyc_documents, kyc_rejection_reason, suspension_reason, closed_reason,
	created_at, updated_at, closed_at, kyc_submitted_at, kyc_verified_at, bank_verified_at`

// MerchantRepo implements ports.MerchantRepository. Bank account numbers and
// IBANs are encrypted before they reach the database.
type MerchantRepo struct {
	pool Pool
	enc  ports.EncryptionService
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(pool Pool, enc ports.EncryptionService) *MerchantRepo {
	return &MerchantRepo{pool: pool, enc: enc}
}

// Create inserts a new merchant. A taken email yields ports.ErrDuplicateEmail.
func (r *MerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	accountEnc, ibanEnc, err := r.encryptBank(m.BankAccount)
	if err != nil {
		return err
	}
	settlement, notifications, documents, err := marshalMerchantJSON(m)
	if err != nil {
		return err
	}

	query := `INSERT INTO merchants (` + merchantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35,
			$36, $37, $38, $39, $40, $41, $42, $43, $44, $45, $46, $47, $48, $49)`

	_, err = r.pool.Exec(ctx, query,
		m.ID, m.Email, m.Name, m.PasswordHash, m.Phone, m.Website,
		m.BusinessName, m.BusinessType, m.BusinessRegistrationNumber, m.TaxID, m.BusinessDescription, m.BusinessCategory,
		m.AddressLine1, m.AddressLine2, m.City, m.State, m.PostalCode, m.Country,
		string(m.Status), string(m.KycStatus), string(m.BankAccountStatus),
		m.EmailVerified, m.EmailVerificationToken, m.EmailVerificationExpiresAt, m.EmailVerifiedAt,
		accountEnc, m.BankAccount.RoutingNumber, m.BankAccount.HolderName, m.BankAccount.BankName, m.BankAccount.SwiftCode, ibanEnc, m.BankAccountVersion,
		m.SupportedCurrencies, m.DefaultCurrency, settlement, notifications,
		m.ApiQuotaUsed, m.ApiQuotaLimit, m.ApiQuotaResetAt,
		documents, m.KycRejectionReason, m.SuspensionReason, m.ClosedReason,
		m.CreatedAt, m.UpdatedAt, m.ClosedAt, m.KycSubmittedAt, m.KycVerifiedAt, m.BankVerifiedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert merchant: %w", ports.ErrDuplicateEmail)
		}
		return fmt.Errorf("insert merchant: %w", err)
	}
	return nil
}

// GetByID fetches a merchant by its UUID.
func (r *MerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1`
	m, err := r.scanMerchant(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant by id: %w", err)
	}
	return m, nil
}

// GetByEmail fetches a merchant by email, case-insensitively.
func (r *MerchantRepo) GetByEmail(ctx context.Context, email string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE lower(email) = lower($1)`
	m, err := r.scanMerchant(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant by email: %w", err)
	}
	return m, nil
}

// GetByVerificationToken fetches the merchant holding a token digest.
func (r *MerchantRepo) GetByVerificationToken(ctx context.Context, tokenDigest string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE email_verification_token = $1`
	m, err := r.scanMerchant(r.pool.QueryRow(ctx, query, tokenDigest))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant by verification token: %w", err)
	}
	return m, nil
}

// Patch writes the columns set in patch in one statement.
func (r *MerchantRepo) Patch(ctx context.Context, id uuid.UUID, patch ports.MerchantPatch) (*domain.Merchant, error) {
	sets, args, err := r.buildPatch(patch, []any{id})
	if err != nil {
		return nil, err
	}
	args = append(args, patch.At)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := `UPDATE merchants SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	if patch.RequireWritable {
		query += ` AND status NOT IN ('SUSPENDED', 'CLOSED')`
	}
	query += ` RETURNING ` + merchantColumns

	m, err := r.scanMerchant(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("patch merchant: %w", err)
	}
	return m, nil
}

// MarkEmailVerified consumes the token in the same statement that checks it.
func (r *MerchantRepo) MarkEmailVerified(ctx context.Context, id uuid.UUID, tokenDigest string, at time.Time) (*domain.Merchant, error) {
	query := `UPDATE merchants SET
			email_verified = TRUE,
			email_verified_at = $3,
			email_verification_token = NULL,
			email_verification_expires_at = NULL,
			updated_at = $3
		WHERE id = $1 AND email_verification_token = $2
		  AND email_verified = FALSE AND email_verification_expires_at > $3
		RETURNING ` + merchantColumns

	m, err := r.scanMerchant(r.pool.QueryRow(ctx, query, id, tokenDigest, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("mark email verified: %w", err)
	}
	return m, nil
}

func (r *MerchantRepo) SetVerificationToken(ctx context.Context, id uuid.UUID, tokenDigest string, expiresAt, at time.Time) (bool, error) {
	query := `UPDATE merchants SET email_verification_token = $2, email_verification_expires_at = $3, updated_at = $4
		WHERE id = $1 AND email_verified = FALSE`
	tag, err := r.pool.Exec(ctx, query, id, tokenDigest, expiresAt, at)
	if err != nil {
		return false, fmt.Errorf("set verification token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateStatus moves a merchant between statuses guarded on the current one.
// Leaving SUSPENDED clears the suspension reason; CLOSED records closure.
func (r *MerchantRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.MerchantStatus, change ports.StatusChange) (*domain.Merchant, error) {
	query := `UPDATE merchants SET
			status = $3::text,
			suspension_reason = CASE WHEN $3::text = 'SUSPENDED' THEN $4 ELSE NULL END,
			closed_reason = CASE WHEN $3::text = 'CLOSED' THEN $4 ELSE closed_reason END,
			closed_at = CASE WHEN $3::text = 'CLOSED' THEN $5 ELSE closed_at END,
			updated_at = $5
		WHERE id = $1 AND status = $2
		RETURNING ` + merchantColumns

	m, err := r.scanMerchant(r.pool.QueryRow(ctx, query, id, string(from), string(to), change.Reason, change.At))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update merchant status: %w", err)
	}
	return m, nil
}

// UpdateKycStatus applies a guarded KYC transition, activating PENDING
// merchants with a verified email when change.ActivateMerchant is set.
func (r *MerchantRepo) UpdateKycStatus(ctx context.Context, id uuid.UUID, from []domain.KycStatus, change ports.KycChange) (*domain.Merchant, error) {
	var documents []byte
	if change.Documents != nil {
		var err error
		if documents, err = json.Marshal(change.Documents); err != nil {
			return nil, fmt.Errorf("marshal kyc documents: %w", err)
		}
	}

	sources := make([]string, len(from))
	for i, s := range from {
		sources[i] = string(s)
	}

	query := `UPDATE merchants SET
			kyc_status = $3,
			kyc_documents = COALESCE($4::jsonb, kyc_documents),
			kyc_rejection_reason = $5,
			kyc_submitted_at = COALESCE($6, kyc_submitted_at),
			kyc_verified_at = COALESCE($7, kyc_verified_at),
			status = CASE WHEN $8 AND status = 'PENDING' AND email_verified THEN 'ACTIVE' ELSE status END,
			updated_at = $9
		WHERE id = $1 AND kyc_status = ANY($2)
		RETURNING ` + merchantColumns

	m, err := r.scanMerchant(r.pool.QueryRow(ctx, query,
		id, sources, string(change.To), documents, change.RejectionReason,
		change.SubmittedAt, change.VerifiedAt, change.ActivateMerchant, change.At,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update kyc status: %w", err)
	}
	return m, nil
}

// UpdateBankAccountStatus is guarded on the account version so a result for
// a replaced account is dropped.
func (r *MerchantRepo) UpdateBankAccountStatus(ctx context.Context, id uuid.UUID, version int64, status domain.BankAccountStatus, verifiedAt *time.Time) (*domain.Merchant, error) {
	query := `UPDATE merchants SET bank_account_status = $3, bank_verified_at = $4, updated_at = NOW()
		WHERE id = $1 AND bank_account_version = $2
		  AND bank_account_status IN ('NOT_VERIFIED', 'PENDING', 'FAILED')
		RETURNING ` + merchantColumns

	m, err := r.scanMerchant(r.pool.QueryRow(ctx, query, id, version, string(status), verifiedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update bank account status: %w", err)
	}
	return m, nil
}

// IncrementApiQuota consumes one unit in a single guarded statement.
func (r *MerchantRepo) IncrementApiQuota(ctx context.Context, id uuid.UUID) (domain.APIQuota, bool, error) {
	query := `UPDATE merchants SET api_quota_used = api_quota_used + 1
		WHERE id = $1 AND api_quota_used < api_quota_limit
		RETURNING api_quota_used, api_quota_limit, api_quota_reset_at`

	var used, limit int64
	var resetAt time.Time
	if err := r.pool.QueryRow(ctx, query, id).Scan(&used, &limit, &resetAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.APIQuota{}, false, nil
		}
		return domain.APIQuota{}, false, fmt.Errorf("increment api quota: %w", err)
	}
	return domain.NewAPIQuota(used, limit, resetAt), true, nil
}

// ResetApiQuotas zeroes usage on rows that consumed quota or whose window
// has passed.
func (r *MerchantRepo) ResetApiQuotas(ctx context.Context, now, nextReset time.Time) (int64, error) {
	query := `UPDATE merchants SET api_quota_used = 0, api_quota_reset_at = $2
		WHERE api_quota_used > 0 OR api_quota_reset_at <= $1`
	tag, err := r.pool.Exec(ctx, query, now, nextReset)
	if err != nil {
		return 0, fmt.Errorf("reset api quotas: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *MerchantRepo) UpdateApiQuotaLimit(ctx context.Context, id uuid.UUID, limit int64) (*domain.Merchant, error) {
	query := `UPDATE merchants SET api_quota_limit = $2, updated_at = NOW() WHERE id = $1
		RETURNING ` + merchantColumns
	m, err := r.scanMerchant(r.pool.QueryRow(ctx, query, id, limit))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update api quota limit: %w", err)
	}
	return m, nil
}

func (r *MerchantRepo) FindExpiredVerificationTokens(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `SELECT id FROM merchants
		WHERE email_verified = FALSE
		  AND email_verification_token IS NOT NULL
		  AND email_verification_expires_at < $1
		ORDER BY email_verification_expires_at
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("find expired verification tokens: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan merchant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MerchantRepo) ClearVerificationTokens(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE merchants SET email_verification_token = NULL, email_verification_expires_at = NULL
		WHERE id = ANY($1) AND email_verified = FALSE AND email_verification_expires_at < $2`
	tag, err := r.pool.Exec(ctx, query, ids, now)
	if err != nil {
		return 0, fmt.Errorf("clear verification tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Search lists merchants newest first.
func (r *MerchantRepo) Search(ctx context.Context, params ports.MerchantSearchParams) ([]domain.Merchant, int64, error) {
	where, args := buildSearchFilter(params)

	var total int64
	countQuery := `SELECT COUNT(*) FROM merchants` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count merchants: %w", err)
	}

	offset := (params.Page - 1) * params.Limit
	args = append(args, params.Limit, offset)
	listQuery := fmt.Sprintf(`SELECT %s FROM merchants%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		merchantColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search merchants: %w", err)
	}
	defer rows.Close()

	merchants := []domain.Merchant{}
	for rows.Next() {
		m, err := r.scanMerchant(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan merchant: %w", err)
		}
		merchants = append(merchants, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate merchants: %w", err)
	}
	return merchants, total, nil
}

// GetStatistics aggregates merchant counts in one grouped query.
func (r *MerchantRepo) GetStatistics(ctx context.Context) (*ports.MerchantStats, error) {
	query := `SELECT status, kyc_status, bank_account_status, email_verified, COUNT(*)
		FROM merchants
		GROUP BY status, kyc_status, bank_account_status, email_verified`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("merchant statistics: %w", err)
	}
	defer rows.Close()

	stats := ports.NewMerchantStats()
	for rows.Next() {
		var (
			status   domain.MerchantStatus
			kyc      domain.KycStatus
			bank     domain.BankAccountStatus
			verified bool
			n        int64
		)
		if err := rows.Scan(&status, &kyc, &bank, &verified, &n); err != nil {
			return nil, fmt.Errorf("scan statistics: %w", err)
		}
		stats.Add(status, kyc, bank, verified, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statistics: %w", err)
	}
	return stats, nil
}

func buildSearchFilter(p ports.MerchantSearchParams) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if p.Query != "" {
		add("(name ILIKE '%%' || $%[1]d || '%%' OR email ILIKE '%%' || $%[1]d || '%%' OR business_name ILIKE '%%' || $%[1]d || '%%')", p.Query)
	}
	if p.Status != nil {
		add("status = $%d", string(*p.Status))
	}
	if p.KycStatus != nil {
		add("kyc_status = $%d", string(*p.KycStatus))
	}
	if p.BusinessType != nil {
		add("business_type = $%d", *p.BusinessType)
	}
	if p.Country != nil {
		add("country = $%d", strings.ToUpper(*p.Country))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// buildPatch appends one SET clause per field present in p. Args continue
// the numbering of args.
func (r *MerchantRepo) buildPatch(p ports.MerchantPatch, args []any) ([]string, []any, error) {
	var sets []string
	set := func(clause string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf(clause, len(args)))
	}
	text := func(column string, v *string) {
		if v != nil {
			set(column+" = NULLIF($%d::text, '')", *v)
		}
	}

	if p.Name != nil {
		set("name = $%d", *p.Name)
	}
	text("phone", p.Phone)
	text("website", p.Website)

	text("business_name", p.BusinessName)
	text("business_type", p.BusinessType)
	text("business_registration_number", p.BusinessRegistrationNumber)
	text("tax_id", p.TaxID)
	text("business_description", p.BusinessDescription)
	text("business_category", p.BusinessCategory)

	text("address_line1", p.AddressLine1)
	text("address_line2", p.AddressLine2)
	text("city", p.City)
	text("state", p.State)
	text("postal_code", p.PostalCode)
	text("country", p.Country)

	if b := p.BankAccount; b != nil {
		accountEnc, ibanEnc, err := r.encryptBank(*b)
		if err != nil {
			return nil, nil, err
		}
		set("bank_account_number_enc = $%d", accountEnc)
		set("bank_routing_number = $%d", b.RoutingNumber)
		set("bank_account_holder_name = $%d", b.HolderName)
		set("bank_name = $%d", b.BankName)
		set("bank_swift_code = $%d", b.SwiftCode)
		set("bank_iban_enc = $%d", ibanEnc)
		set("bank_account_status = $%d", string(domain.BankAccountStatusPending))
		sets = append(sets, "bank_verified_at = NULL", "bank_account_version = bank_account_version + 1")
	}

	if p.Settlement != nil {
		doc, err := json.Marshal(settlementFields(*p.Settlement))
		if err != nil {
			return nil, nil, fmt.Errorf("marshal settlement preferences: %w", err)
		}
		set("settlement_preferences = settlement_preferences || $%d::jsonb", doc)
	}
	if p.Notifications != nil {
		doc, err := json.Marshal(notificationFields(*p.Notifications))
		if err != nil {
			return nil, nil, fmt.Errorf("marshal notification preferences: %w", err)
		}
		set("notification_preferences = notification_preferences || $%d::jsonb", doc)
	}

	if p.SupportedCurrencies != nil {
		set("supported_currencies = $%d", p.SupportedCurrencies)
	}
	if p.DefaultCurrency != nil {
		set("default_currency = $%d", *p.DefaultCurrency)
	}
	return sets, args, nil
}

// settlementFields holds only the keys the request sets, so the JSONB merge
// leaves the others as stored.
func settlementFields(req ports.SettlementRequest) map[string]any {
	out := map[string]any{}
	if req.Frequency != nil {
		out["frequency"] = *req.Frequency
	}
	if req.MinimumAmount != nil {
		out["minimum_amount"] = *req.MinimumAmount
	}
	if req.AutoSettlement != nil {
		out["auto_settlement"] = *req.AutoSettlement
	}
	return out
}

func notificationFields(req ports.NotificationRequest) map[string]any {
	out := map[string]any{}
	for key, v := range map[string]*bool{
		"email_notifications":   req.EmailNotifications,
		"sms_notifications":     req.SmsNotifications,
		"webhook_notifications": req.WebhookNotifications,
		"transaction_alerts":    req.TransactionAlerts,
		"settlement_alerts":     req.SettlementAlerts,
		"security_alerts":       req.SecurityAlerts,
		"marketing_emails":      req.MarketingEmails,
	} {
		if v != nil {
			out[key] = *v
		}
	}
	return out
}

// scanMerchant reads one merchantColumns row, decrypting bank fields.
func (r *MerchantRepo) scanMerchant(row pgx.Row) (*domain.Merchant, error) {
	var m domain.Merchant
	var accountEnc, ibanEnc *string
	var settlement, notifications, documents []byte
	err := row.Scan(
		&m.ID, &m.Email, &m.Name, &m.PasswordHash, &m.Phone, &m.Website,
		&m.BusinessName, &m.BusinessType, &m.BusinessRegistrationNumber, &m.TaxID, &m.BusinessDescription, &m.BusinessCategory,
		&m.AddressLine1, &m.AddressLine2, &m.City, &m.State, &m.PostalCode, &m.Country,
		&m.Status, &m.KycStatus, &m.BankAccountStatus,
		&m.EmailVerified, &m.EmailVerificationToken, &m.EmailVerificationExpiresAt, &m.EmailVerifiedAt,
		&accountEnc, &m.BankAccount.RoutingNumber, &m.BankAccount.HolderName, &m.BankAccount.BankName, &m.BankAccount.SwiftCode, &ibanEnc, &m.BankAccountVersion,
		&m.SupportedCurrencies, &m.DefaultCurrency, &settlement, &notifications,
		&m.ApiQuotaUsed, &m.ApiQuotaLimit, &m.ApiQuotaResetAt,
		&documents, &m.KycRejectionReason, &m.SuspensionReason, &m.ClosedReason,
		&m.CreatedAt, &m.UpdatedAt, &m.ClosedAt, &m.KycSubmittedAt, &m.KycVerifiedAt, &m.BankVerifiedAt,
	)
	if err != nil {
		return nil, err
	}

	if m.BankAccount.AccountNumber, err = r.decrypt(accountEnc); err != nil {
		return nil, fmt.Errorf("decrypt account number: %w", err)
	}
	if m.BankAccount.IBAN, err = r.decrypt(ibanEnc); err != nil {
		return nil, fmt.Errorf("decrypt iban: %w", err)
	}

	m.Settlement = domain.DefaultSettlementPreferences()
	if len(settlement) > 0 {
		if err := json.Unmarshal(settlement, &m.Settlement); err != nil {
			return nil, fmt.Errorf("decode settlement preferences: %w", err)
		}
	}
	m.Notifications = domain.DefaultNotificationPreferences()
	if len(notifications) > 0 {
		if err := json.Unmarshal(notifications, &m.Notifications); err != nil {
			return nil, fmt.Errorf("decode notification preferences: %w", err)
		}
	}
	m.KycDocuments = []domain.KycDocument{}
	if len(documents) > 0 {
		if err := json.Unmarshal(documents, &m.KycDocuments); err != nil {
			return nil, fmt.Errorf("decode kyc documents: %w", err)
		}
	}
	if m.SupportedCurrencies == nil {
		m.SupportedCurrencies = []string{}
	}
	return &m, nil
}

func (r *MerchantRepo) encryptBank(b domain.BankAccount) (account, iban *string, err error) {
	if account, err = r.encrypt(b.AccountNumber); err != nil {
		return nil, nil, fmt.Errorf("encrypt account number: %w", err)
	}
	if iban, err = r.encrypt(b.IBAN); err != nil {
		return nil, nil, fmt.Errorf("encrypt iban: %w", err)
	}
	return account, iban, nil
}

func (r *MerchantRepo) encrypt(v *string) (*string, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	out, err := r.enc.Encrypt(*v)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MerchantRepo) decrypt(v *string) (*string, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	out, err := r.enc.Decrypt(*v)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func marshalMerchantJSON(m *domain.Merchant) (settlement, notifications, documents []byte, err error) {
	if settlement, err = json.Marshal(m.Settlement); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal settlement preferences: %w", err)
	}
	if notifications, err = json.Marshal(m.Notifications); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal notification preferences: %w", err)
	}
	docs := m.KycDocuments
	if docs == nil {
		docs = []domain.KycDocument{}
	}
	if documents, err = json.Marshal(docs); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal kyc documents: %w", err)
	}
	return settlement, notifications, documents, nil
}
