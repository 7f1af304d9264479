package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"
	"merchant-service/internal/core/ports/mocks"
	"merchant-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type adminMocks struct {
	users    *mocks.MockAdminUserRepository
	sessions *mocks.MockAdminSessionRepository
	attempts *mocks.MockLoginAttemptRepository
	hash     *mocks.MockHashService
	tokens   *mocks.MockAdminTokenService
}

func setupAdminAuthService(t *testing.T) (*AdminAuthServiceImpl, *adminMocks) {
	ctrl := gomock.NewController(t)
	m := &adminMocks{
		users:    mocks.NewMockAdminUserRepository(ctrl),
		sessions: mocks.NewMockAdminSessionRepository(ctrl),
		attempts: mocks.NewMockLoginAttemptRepository(ctrl),
		hash:     mocks.NewMockHashService(ctrl),
		tokens:   mocks.NewMockAdminTokenService(ctrl),
	}
	svc := NewAdminAuthService(m.users, m.sessions, m.attempts, m.hash, m.tokens,
		AdminAuthConfig{LockoutThreshold: 5, LockoutWindow: 15 * time.Minute}, nil, newTestLogger())
	svc.now = func() time.Time { return testNow }
	return svc, m
}

func newTestAdmin(role domain.AdminRole) *domain.AdminUser {
	return &domain.AdminUser{
		ID:           uuid.New(),
		Email:        "ops@example.com",
		PasswordHash: "$2a$10$admin",
		Role:         role,
		IsActive:     true,
	}
}

func loginRequest() ports.AdminLoginRequest {
	return ports.AdminLoginRequest{
		Email:     "Ops@Example.com",
		Password:  "admin-pass",
		UserAgent: "curl/8.0",
		IPAddress: "10.0.0.7",
	}
}

func TestAdminAuthService_Login_Success(t *testing.T) {
	svc, m := setupAdminAuthService(t)
	admin := newTestAdmin(domain.AdminRoleAdmin)
	ctx := context.Background()

	m.attempts.EXPECT().CountRecentFailures(ctx, "ops@example.com", testNow.Add(-15*time.Minute)).Return(0, nil)
	m.users.EXPECT().GetByEmail(ctx, "ops@example.com").Return(admin, nil)
	m.hash.EXPECT().Verify("admin-pass", admin.PasswordHash).Return(true, nil)
	m.attempts.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, a *domain.LoginAttempt) error {
		assert.True(t, a.Success)
		assert.Equal(t, admin.ID, *a.UserID)
		assert.Equal(t, "10.0.0.7", a.IPAddress)
		return nil
	})
	m.tokens.EXPECT().GenerateRefresh(admin).Return("refresh-token", testNow.Add(7*24*time.Hour), nil)

	var sessionID uuid.UUID
	m.sessions.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, s *domain.AdminSession) error {
		assert.Equal(t, "refresh-token", s.RefreshToken)
		assert.True(t, s.IsActive)
		assert.Equal(t, "curl/8.0", s.UserAgent)
		assert.Equal(t, testNow.Add(7*24*time.Hour), s.ExpiresAt)
		sessionID = s.ID
		return nil
	})
	m.tokens.EXPECT().GenerateAccess(admin, gomock.Any()).DoAndReturn(func(_ *domain.AdminUser, sid uuid.UUID) (string, time.Duration, error) {
		assert.Equal(t, sessionID, sid, "access token is bound to the new session")
		return "access-token", 2 * time.Hour, nil
	})

	res, err := svc.Login(ctx, loginRequest())
	require.NoError(t, err)
	assert.Equal(t, "access-token", res.AccessToken)
	assert.Equal(t, "refresh-token", res.RefreshToken)
	assert.Equal(t, int64(7200), res.ExpiresIn)
	assert.Equal(t, ports.AdminIdentity{ID: admin.ID, Email: admin.Email, Role: domain.AdminRoleAdmin}, res.Admin)
}

func TestAdminAuthService_Login_Locked(t *testing.T) {
	svc, m := setupAdminAuthService(t)

	m.attempts.EXPECT().CountRecentFailures(gomock.Any(), "ops@example.com", gomock.Any()).Return(5, nil)

	_, err := svc.Login(context.Background(), loginRequest())
	appErr := assertAppCode(t, err, apperror.CodeAccountLocked)
	assert.Equal(t, 403, appErr.HTTPStatus)
}

func TestAdminAuthService_Login_RejectsAndRecordsFailure(t *testing.T) {
	inactive := newTestAdmin(domain.AdminRoleAdmin)
	inactive.IsActive = false

	tests := []struct {
		name        string
		user        *domain.AdminUser
		checkPass   bool
		passwordOK  bool
		wantUserRef bool
	}{
		{"unknown email", nil, false, false, false},
		{"inactive", inactive, false, false, true},
		{"user role", newTestAdmin(domain.AdminRoleUser), false, false, true},
		{"wrong password", newTestAdmin(domain.AdminRoleSupportAdmin), true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := setupAdminAuthService(t)

			m.attempts.EXPECT().CountRecentFailures(gomock.Any(), gomock.Any(), gomock.Any()).Return(4, nil)
			m.users.EXPECT().GetByEmail(gomock.Any(), "ops@example.com").Return(tt.user, nil)
			if tt.checkPass {
				m.hash.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(tt.passwordOK, nil)
			}
			m.attempts.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, a *domain.LoginAttempt) error {
				assert.False(t, a.Success)
				assert.Equal(t, tt.wantUserRef, a.UserID != nil)
				return nil
			})

			_, err := svc.Login(context.Background(), loginRequest())
			assertAppCode(t, err, apperror.CodeUnauthorized)
		})
	}
}

func TestAdminAuthService_Login_StoreError(t *testing.T) {
	svc, m := setupAdminAuthService(t)
	m.attempts.EXPECT().CountRecentFailures(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, errors.New("db down"))

	_, err := svc.Login(context.Background(), loginRequest())
	assertAppCode(t, err, apperror.CodeInternal)
}

func TestAdminAuthService_Refresh(t *testing.T) {
	admin := newTestAdmin(domain.AdminRoleAdmin)
	activeSession := func() *domain.AdminSession {
		return &domain.AdminSession{
			ID:           uuid.New(),
			UserID:       admin.ID,
			RefreshToken: "refresh-token",
			IsActive:     true,
			ExpiresAt:    testNow.Add(time.Hour),
		}
	}

	t.Run("success", func(t *testing.T) {
		svc, m := setupAdminAuthService(t)
		session := activeSession()
		m.tokens.EXPECT().ValidateRefresh("refresh-token").Return(&ports.AdminClaims{UserID: admin.ID}, nil)
		m.sessions.EXPECT().GetActiveByRefreshToken(gomock.Any(), "refresh-token").Return(session, nil)
		m.users.EXPECT().GetByID(gomock.Any(), admin.ID).Return(admin, nil)
		m.tokens.EXPECT().GenerateAccess(admin, session.ID).Return("new-access", 2*time.Hour, nil)

		res, err := svc.Refresh(context.Background(), "refresh-token")
		require.NoError(t, err)
		assert.Equal(t, "new-access", res.AccessToken)
		assert.Empty(t, res.RefreshToken, "refresh token is not rotated")
		assert.Equal(t, int64(7200), res.ExpiresIn)
	})

	t.Run("bad signature", func(t *testing.T) {
		svc, m := setupAdminAuthService(t)
		m.tokens.EXPECT().ValidateRefresh("forged").Return(nil, errors.New("signature is invalid"))

		_, err := svc.Refresh(context.Background(), "forged")
		assertAppCode(t, err, apperror.CodeUnauthorized)
	})

	t.Run("revoked session", func(t *testing.T) {
		svc, m := setupAdminAuthService(t)
		m.tokens.EXPECT().ValidateRefresh(gomock.Any()).Return(&ports.AdminClaims{}, nil)
		m.sessions.EXPECT().GetActiveByRefreshToken(gomock.Any(), gomock.Any()).Return(nil, nil)

		_, err := svc.Refresh(context.Background(), "refresh-token")
		assertAppCode(t, err, apperror.CodeUnauthorized)
	})

	t.Run("expired session", func(t *testing.T) {
		svc, m := setupAdminAuthService(t)
		session := activeSession()
		session.ExpiresAt = testNow.Add(-time.Second)
		m.tokens.EXPECT().ValidateRefresh(gomock.Any()).Return(&ports.AdminClaims{}, nil)
		m.sessions.EXPECT().GetActiveByRefreshToken(gomock.Any(), gomock.Any()).Return(session, nil)

		_, err := svc.Refresh(context.Background(), "refresh-token")
		assertAppCode(t, err, apperror.CodeUnauthorized)
	})

	t.Run("deactivated user", func(t *testing.T) {
		svc, m := setupAdminAuthService(t)
		disabled := *admin
		disabled.IsActive = false
		m.tokens.EXPECT().ValidateRefresh(gomock.Any()).Return(&ports.AdminClaims{}, nil)
		m.sessions.EXPECT().GetActiveByRefreshToken(gomock.Any(), gomock.Any()).Return(activeSession(), nil)
		m.users.EXPECT().GetByID(gomock.Any(), admin.ID).Return(&disabled, nil)

		_, err := svc.Refresh(context.Background(), "refresh-token")
		assertAppCode(t, err, apperror.CodeUnauthorized)
	})
}

func TestAdminAuthService_Logout_NeverFails(t *testing.T) {
	svc, m := setupAdminAuthService(t)

	m.sessions.EXPECT().Deactivate(gomock.Any(), "refresh-token", testNow).Return(true, nil)
	svc.Logout(context.Background(), "refresh-token")

	m.sessions.EXPECT().Deactivate(gomock.Any(), "refresh-token", testNow).Return(false, nil)
	svc.Logout(context.Background(), "refresh-token")

	m.sessions.EXPECT().Deactivate(gomock.Any(), "other", testNow).Return(false, errors.New("db down"))
	svc.Logout(context.Background(), "other")

	svc.Logout(context.Background(), "")
}

func TestAdminAuthService_Authenticate(t *testing.T) {
	svc, m := setupAdminAuthService(t)
	claims := &ports.AdminClaims{UserID: uuid.New(), Role: domain.AdminRoleSupportAdmin}

	m.tokens.EXPECT().ValidateAccess("good").Return(claims, nil)
	got, err := svc.Authenticate(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, claims, got)

	m.tokens.EXPECT().ValidateAccess("bad").Return(nil, errors.New("expired"))
	_, err = svc.Authenticate(context.Background(), "bad")
	assertAppCode(t, err, apperror.CodeInvalidToken)

	m.tokens.EXPECT().ValidateAccess("user").Return(&ports.AdminClaims{Role: domain.AdminRoleUser}, nil)
	_, err = svc.Authenticate(context.Background(), "user")
	assertAppCode(t, err, apperror.CodeForbidden)
}
