package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"
	"merchant-service/pkg/apperror"
	"merchant-service/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AdminAuthConfig holds the lockout policy.
type AdminAuthConfig struct {
	LockoutThreshold int
	LockoutWindow    time.Duration
}

// AdminAuthServiceImpl implements ports.AdminAuthService.
type AdminAuthServiceImpl struct {
	users    ports.AdminUserRepository
	sessions ports.AdminSessionRepository
	attempts ports.LoginAttemptRepository
	hashSvc  ports.HashService
	tokens   ports.AdminTokenService
	cfg      AdminAuthConfig
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

// NewAdminAuthService creates a new AdminAuthServiceImpl.
func NewAdminAuthService(
	users ports.AdminUserRepository,
	sessions ports.AdminSessionRepository,
	attempts ports.LoginAttemptRepository,
	hashSvc ports.HashService,
	tokens ports.AdminTokenService,
	cfg AdminAuthConfig,
	m *metrics.Metrics,
	log zerolog.Logger,
) *AdminAuthServiceImpl {
	if cfg.LockoutThreshold <= 0 {
		cfg.LockoutThreshold = 5
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = 15 * time.Minute
	}
	return &AdminAuthServiceImpl{
		users:    users,
		sessions: sessions,
		attempts: attempts,
		hashSvc:  hashSvc,
		tokens:   tokens,
		cfg:      cfg,
		metrics:  m,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Login authenticates an admin and opens a refresh session.
func (s *AdminAuthServiceImpl) Login(ctx context.Context, req ports.AdminLoginRequest) (*ports.AdminLoginResult, error) {
	email := normalizeEmail(req.Email)
	now := s.now()

	failures, err := s.attempts.CountRecentFailures(ctx, email, now.Add(-s.cfg.LockoutWindow))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count login failures: %w", err))
	}
	if failures >= s.cfg.LockoutThreshold {
		s.metrics.AdminLogin("locked")
		s.log.Warn().Str("email", email).Str("ip", req.IPAddress).Msg("admin login blocked by lockout")
		return nil, apperror.ErrAccountLocked()
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find admin user: %w", err))
	}
	if user == nil || !user.IsActive || !user.Role.CanAccessAdminPanel() {
		return nil, s.reject(ctx, email, user, req.IPAddress)
	}

	valid, err := s.hashSvc.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return nil, s.reject(ctx, email, user, req.IPAddress)
	}

	if err := s.recordAttempt(ctx, email, &user.ID, req.IPAddress, true); err != nil {
		return nil, err
	}

	refreshToken, refreshExpiry, err := s.tokens.GenerateRefresh(user)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate refresh token: %w", err))
	}

	session := &domain.AdminSession{
		ID:           uuid.New(),
		UserID:       user.ID,
		RefreshToken: refreshToken,
		IsActive:     true,
		ExpiresAt:    refreshExpiry,
		UserAgent:    req.UserAgent,
		IPAddress:    req.IPAddress,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create admin session: %w", err))
	}

	result, err := s.issueAccess(user, session.ID)
	if err != nil {
		return nil, err
	}
	result.RefreshToken = refreshToken

	s.metrics.AdminLogin("success")
	s.log.Info().Str("admin_id", user.ID.String()).Str("role", string(user.Role)).Msg("admin logged in")
	return result, nil
}

// Refresh mints a new access token for an active session. The refresh token
// itself is not rotated.
func (s *AdminAuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (*ports.AdminLoginResult, error) {
	if _, err := s.tokens.ValidateRefresh(refreshToken); err != nil {
		return nil, apperror.ErrUnauthorized("invalid refresh token")
	}

	session, err := s.sessions.GetActiveByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find admin session: %w", err))
	}
	if session == nil || !session.IsUsable(s.now()) {
		return nil, apperror.ErrUnauthorized("session expired or revoked")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find admin user: %w", err))
	}
	if user == nil || !user.IsActive || !user.Role.CanAccessAdminPanel() {
		return nil, apperror.ErrUnauthorized("admin account is not active")
	}

	return s.issueAccess(user, session.ID)
}

// Logout deactivates the session holding refreshToken. Failures are logged.
func (s *AdminAuthServiceImpl) Logout(ctx context.Context, refreshToken string) {
	if strings.TrimSpace(refreshToken) == "" {
		return
	}
	ok, err := s.sessions.Deactivate(ctx, refreshToken, s.now())
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to deactivate admin session")
		return
	}
	if !ok {
		s.log.Debug().Msg("logout for unknown or inactive session")
	}
}

// Authenticate validates an admin access token.
func (s *AdminAuthServiceImpl) Authenticate(_ context.Context, accessToken string) (*ports.AdminClaims, error) {
	claims, err := s.tokens.ValidateAccess(accessToken)
	if err != nil {
		return nil, apperror.ErrInvalidToken()
	}
	if !claims.Role.CanAccessAdminPanel() {
		return nil, apperror.ErrForbidden()
	}
	return claims, nil
}

func (s *AdminAuthServiceImpl) issueAccess(user *domain.AdminUser, sessionID uuid.UUID) (*ports.AdminLoginResult, error) {
	accessToken, ttl, err := s.tokens.GenerateAccess(user, sessionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate access token: %w", err))
	}
	return &ports.AdminLoginResult{
		AccessToken: accessToken,
		ExpiresIn:   int64(ttl / time.Second),
		Admin: ports.AdminIdentity{
			ID:    user.ID,
			Email: user.Email,
			Role:  user.Role,
		},
	}, nil
}

// reject records a failed attempt and returns the generic credential error.
func (s *AdminAuthServiceImpl) reject(ctx context.Context, email string, user *domain.AdminUser, ip string) error {
	var userID *uuid.UUID
	if user != nil {
		userID = &user.ID
	}
	if err := s.recordAttempt(ctx, email, userID, ip, false); err != nil {
		return err
	}
	s.metrics.AdminLogin("failure")
	return apperror.ErrInvalidCredentials()
}

func (s *AdminAuthServiceImpl) recordAttempt(ctx context.Context, email string, userID *uuid.UUID, ip string, success bool) error {
	attempt := &domain.LoginAttempt{
		ID:          uuid.New(),
		Email:       email,
		UserID:      userID,
		IPAddress:   ip,
		Success:     success,
		AttemptedAt: s.now(),
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return apperror.InternalError(fmt.Errorf("record login attempt: %w", err))
	}
	return nil
}
