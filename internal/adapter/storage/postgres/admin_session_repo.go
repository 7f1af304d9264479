package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

type adminSessionRepo struct {
	pool Pool
}

// NewAdminSessionRepository creates a PostgreSQL-backed AdminSessionRepository.
func NewAdminSessionRepository(pool Pool) ports.AdminSessionRepository {
	return &adminSessionRepo{pool: pool}
}

func (r *adminSessionRepo) Create(ctx context.Context, s *domain.AdminSession) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO admin_sessions (id, user_id, refresh_token, is_active, expires_at, user_agent, ip_address, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, s.RefreshToken, s.IsActive, s.ExpiresAt, s.UserAgent, s.IPAddress, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert admin session: %w", err)
	}
	return nil
}

func (r *adminSessionRepo) GetActiveByRefreshToken(ctx context.Context, refreshToken string) (*domain.AdminSession, error) {
	var s domain.AdminSession
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, refresh_token, is_active, expires_at, user_agent, ip_address, created_at, updated_at
		 FROM admin_sessions WHERE refresh_token = $1 AND is_active`,
		refreshToken,
	).Scan(&s.ID, &s.UserID, &s.RefreshToken, &s.IsActive, &s.ExpiresAt, &s.UserAgent, &s.IPAddress, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get admin session: %w", err)
	}
	return &s, nil
}

func (r *adminSessionRepo) Deactivate(ctx context.Context, refreshToken string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE admin_sessions SET is_active = FALSE, updated_at = $2 WHERE refresh_token = $1 AND is_active`,
		refreshToken, at,
	)
	if err != nil {
		return false, fmt.Errorf("deactivate admin session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
