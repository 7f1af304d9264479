package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdminRole is the privilege level of an admin-panel user.
type AdminRole string

const (
	AdminRoleAdmin        AdminRole = "ADMIN"
	AdminRoleSupportAdmin AdminRole = "SUPPORT_ADMIN"
	AdminRoleUser         AdminRole = "USER"
)

// CanAccessAdminPanel reports whether the role may log in to the admin API.
func (r AdminRole) CanAccessAdminPanel() bool {
	return r == AdminRoleAdmin || r == AdminRoleSupportAdmin
}

// AdminUser is an operator account.
type AdminUser struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         AdminRole `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AdminSession binds a refresh token to a user.
type AdminSession struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	RefreshToken string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserAgent    string    `json:"user_agent"`
	IPAddress    string    `json:"ip_address"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsUsable reports whether the session can mint new access tokens at now.
func (s *AdminSession) IsUsable(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}

// LoginAttempt is an append-only record used for lockout counting.
type LoginAttempt struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	IPAddress   string     `json:"ip_address"`
	Success     bool       `json:"success"`
	AttemptedAt time.Time  `json:"attempted_at"`
}
