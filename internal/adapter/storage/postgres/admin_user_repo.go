package postgres

import (
	"context"
	"errors"
	"fmt"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrDuplicateAdminEmail is returned when an admin email is already taken.
var ErrDuplicateAdminEmail = errors.New("admin email already registered")

const adminUserColumns = `id, email, password_hash, role, is_active, created_at, updated_at`

type adminUserRepo struct {
	pool Pool
}

// NewAdminUserRepository creates a PostgreSQL-backed AdminUserRepository.
func NewAdminUserRepository(pool Pool) ports.AdminUserRepository {
	return &adminUserRepo{pool: pool}
}

func (r *adminUserRepo) Create(ctx context.Context, u *domain.AdminUser) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO admin_users (`+adminUserColumns+`) VALUES ($1, lower($2), $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.PasswordHash, string(u.Role), u.IsActive, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert admin user: %w", ErrDuplicateAdminEmail)
		}
		return fmt.Errorf("insert admin user: %w", err)
	}
	return nil
}

func (r *adminUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AdminUser, error) {
	return r.get(ctx, `SELECT `+adminUserColumns+` FROM admin_users WHERE id = $1`, id)
}

func (r *adminUserRepo) GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	return r.get(ctx, `SELECT `+adminUserColumns+` FROM admin_users WHERE email = lower($1)`, email)
}

func (r *adminUserRepo) get(ctx context.Context, query string, arg any) (*domain.AdminUser, error) {
	var u domain.AdminUser
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get admin user: %w", err)
	}
	return &u, nil
}
