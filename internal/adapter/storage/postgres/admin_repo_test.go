package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"merchant-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestAdminUserRepo_GetByEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewAdminUserRepository(mock)
	now := time.Now().UTC()
	id := uuid.New()

	mock.ExpectQuery(`FROM admin_users WHERE email = lower\(\$1\)`).
		WithArgs("Ops@Example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}).
			AddRow(id, "ops@example.com", "hash", domain.AdminRoleSupportAdmin, true, now, now))

	u, err := repo.GetByEmail(context.Background(), "Ops@Example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, domain.AdminRoleSupportAdmin, u.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminUserRepo_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewAdminUserRepository(mock)

	mock.ExpectQuery(`FROM admin_users WHERE id`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}))

	u, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestAdminUserRepo_Create_Duplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewAdminUserRepository(mock)

	mock.ExpectExec(`INSERT INTO admin_users`).
		WithArgs(anyArgs(7)...).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &domain.AdminUser{ID: uuid.New(), Email: "ops@example.com", Role: domain.AdminRoleAdmin})
	assert.ErrorIs(t, err, ErrDuplicateAdminEmail)
}

func TestAdminSessionRepo_Deactivate(t *testing.T) {
	mock := newMock(t)
	repo := NewAdminSessionRepository(mock)
	now := time.Now()

	mock.ExpectExec(`UPDATE admin_sessions SET is_active = FALSE`).
		WithArgs("refresh-1", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE admin_sessions SET is_active = FALSE`).
		WithArgs("refresh-1", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.Deactivate(context.Background(), "refresh-1", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Deactivate(context.Background(), "refresh-1", now)
	require.NoError(t, err)
	assert.False(t, ok, "second logout finds no active session")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminSessionRepo_GetActiveByRefreshToken(t *testing.T) {
	mock := newMock(t)
	repo := NewAdminSessionRepository(mock)
	now := time.Now().UTC()
	sid, uid := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM admin_sessions WHERE refresh_token = \$1 AND is_active`).
		WithArgs("refresh-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "refresh_token", "is_active", "expires_at", "user_agent", "ip_address", "created_at", "updated_at"}).
			AddRow(sid, uid, "refresh-1", true, now.Add(time.Hour), "curl", "10.0.0.1", now, now))

	s, err := repo.GetActiveByRefreshToken(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, uid, s.UserID)
	assert.True(t, s.IsUsable(now))
}

func TestLoginAttemptRepo(t *testing.T) {
	mock := newMock(t)
	repo := NewLoginAttemptRepository(mock)
	since := time.Now().Add(-15 * time.Minute)

	mock.ExpectExec(`INSERT INTO login_attempts`).
		WithArgs(pgxmock.AnyArg(), "ops@example.com", pgxmock.AnyArg(), pgxmock.AnyArg(), false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM login_attempts.+GREATEST`).
		WithArgs("ops@example.com", since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	require.NoError(t, repo.Create(context.Background(), &domain.LoginAttempt{ID: uuid.New(), Email: "ops@example.com"}))

	n, err := repo.CountRecentFailures(context.Background(), "ops@example.com", since)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewAuditRepository(mock)
	mid := uuid.New()

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(pgxmock.AnyArg(), &mid, "admin:42", "STATUS_CHANGE", "merchant", mid.String(), `{"to":"SUSPENDED"}`, "10.0.0.1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(anyArgs(9)...).
		WillReturnError(errors.New("disk full"))

	entry := &domain.AuditLog{
		ID: uuid.New(), MerchantID: &mid, Actor: "admin:42", Action: domain.AuditActionStatusChange,
		ResourceType: "merchant", ResourceID: mid.String(), Details: `{"to":"SUSPENDED"}`,
		IPAddress: "10.0.0.1", CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.ErrorContains(t, repo.Create(context.Background(), entry), "insert audit log")
}
