package memory

import (
	"context"
	"sync"

	"merchant-service/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository as an append-only slice.
type AuditRepo struct {
	mu      sync.RWMutex
	entries []domain.AuditLog
}

func NewAuditRepo() *AuditRepo {
	return &AuditRepo{}
}

func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *log)
	return nil
}

// Entries returns a snapshot of everything recorded so far.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AuditLog, len(r.entries))
	copy(out, r.entries)
	return out
}
