package service

import (
	"context"
	"time"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const auditPersistTimeout = 5 * time.Second

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates a new audit service.
// If repo is nil, audit entries are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Log records an audit entry asynchronously. The request context may be
// cancelled before persistence completes, so the write detaches from it.
func (s *auditService) Log(ctx context.Context, entry *domain.AuditLog) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Actor == "" {
		entry.Actor = "anonymous"
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		s.log.Info().
			Str("actor", entry.Actor).
			Str("action", string(entry.Action)).
			Str("resource_type", entry.ResourceType).
			Str("resource_id", entry.ResourceID).
			Str("ip", entry.IPAddress).
			Msg("audit")

		if s.repo == nil {
			return
		}
		writeCtx, cancel := context.WithTimeout(detached, auditPersistTimeout)
		defer cancel()
		if err := s.repo.Create(writeCtx, entry); err != nil {
			s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to persist audit log")
		}
	}()
}
