package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"merchant-service/internal/core/domain"

	"github.com/google/uuid"
)

// ErrDuplicateAdminEmail is returned when an admin email is already taken.
var ErrDuplicateAdminEmail = errors.New("admin email already registered")

// AdminUserRepo implements ports.AdminUserRepository.
type AdminUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]domain.AdminUser
}

func NewAdminUserRepo() *AdminUserRepo {
	return &AdminUserRepo{users: make(map[uuid.UUID]domain.AdminUser)}
}

func (r *AdminUserRepo) Create(ctx context.Context, u *domain.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateAdminEmail
		}
	}
	stored := *u
	stored.Email = strings.ToLower(u.Email)
	r.users[u.ID] = stored
	return nil
}

func (r *AdminUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AdminUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *AdminUserRepo) GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

// AdminSessionRepo implements ports.AdminSessionRepository.
type AdminSessionRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]domain.AdminSession
}

func NewAdminSessionRepo() *AdminSessionRepo {
	return &AdminSessionRepo{sessions: make(map[uuid.UUID]domain.AdminSession)}
}

func (r *AdminSessionRepo) Create(ctx context.Context, s *domain.AdminSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = *s
	return nil
}

func (r *AdminSessionRepo) GetActiveByRefreshToken(ctx context.Context, refreshToken string) (*domain.AdminSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.IsActive && s.RefreshToken == refreshToken {
			return &s, nil
		}
	}
	return nil, nil
}

func (r *AdminSessionRepo) Deactivate(ctx context.Context, refreshToken string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := false
	for id, s := range r.sessions {
		if s.IsActive && s.RefreshToken == refreshToken {
			s.IsActive = false
			s.UpdatedAt = at
			r.sessions[id] = s
			found = true
		}
	}
	return found, nil
}

// LoginAttemptRepo implements ports.LoginAttemptRepository.
type LoginAttemptRepo struct {
	mu       sync.RWMutex
	attempts []domain.LoginAttempt
}

func NewLoginAttemptRepo() *LoginAttemptRepo {
	return &LoginAttemptRepo{}
}

func (r *LoginAttemptRepo) Create(ctx context.Context, a *domain.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *a
	stored.Email = strings.ToLower(a.Email)
	r.attempts = append(r.attempts, stored)
	return nil
}

func (r *LoginAttemptRepo) CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email = strings.ToLower(email)

	cutoff := since
	for _, a := range r.attempts {
		if a.Email == email && a.Success && a.AttemptedAt.After(cutoff) {
			cutoff = a.AttemptedAt
		}
	}

	n := 0
	for _, a := range r.attempts {
		if a.Email == email && !a.Success && a.AttemptedAt.After(cutoff) {
			n++
		}
	}
	return n, nil
}
