package postgres

import (
	"context"
	"fmt"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"
)

type auditRepo struct {
	pool Pool
}

// NewAuditRepository creates a PostgreSQL-backed AuditRepository.
func NewAuditRepository(pool Pool) ports.AuditRepository {
	return &auditRepo{pool: pool}
}

func (r *auditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, merchant_id, actor, action, resource_type, resource_id, details, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::jsonb, $8, $9)`,
		log.ID, log.MerchantID, log.Actor, string(log.Action), log.ResourceType,
		log.ResourceID, log.Details, log.IPAddress, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
