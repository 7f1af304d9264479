package postgres

import (
	"context"
	"fmt"
	"time"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"
)

type loginAttemptRepo struct {
	pool Pool
}

// NewLoginAttemptRepository creates a PostgreSQL-backed LoginAttemptRepository.
func NewLoginAttemptRepository(pool Pool) ports.LoginAttemptRepository {
	return &loginAttemptRepo{pool: pool}
}

func (r *loginAttemptRepo) Create(ctx context.Context, a *domain.LoginAttempt) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO login_attempts (id, email, user_id, ip_address, success, attempted_at)
		 VALUES ($1, lower($2), $3, $4, $5, $6)`,
		a.ID, a.Email, a.UserID, a.IPAddress, a.Success, a.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}
	return nil
}

// CountRecentFailures counts failures newer than both since and the last
// successful login for the email.
func (r *loginAttemptRepo) CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM login_attempts
		 WHERE email = lower($1) AND NOT success
		   AND attempted_at > GREATEST($2, COALESCE(
		       (SELECT MAX(attempted_at) FROM login_attempts WHERE email = lower($1) AND success), $2))`,
		email, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count login failures: %w", err)
	}
	return n, nil
}
