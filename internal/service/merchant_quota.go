package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"
	"merchant-service/pkg/apperror"

	"github.com/google/uuid"
)

const (
	statsCacheKey   = "merchant:stats"
	tokenPurgeBatch = 500
	maxSearchLimit  = 100
)

// CheckAndIncrementApiQuota consumes one API call for the merchant. It does
// not look at the account status; each operation applies its own rules.
func (s *MerchantServiceImpl) CheckAndIncrementApiQuota(ctx context.Context, id uuid.UUID) (*domain.APIQuota, error) {
	merchant, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if merchant.ApiQuotaUsed >= merchant.ApiQuotaLimit {
		s.metrics.QuotaRejected()
		return nil, apperror.ErrQuotaExceeded(merchant.ApiQuotaLimit, merchant.ApiQuotaResetAt)
	}

	quota, ok, err := s.repo.IncrementApiQuota(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("increment quota: %w", err))
	}
	if !ok {
		s.metrics.QuotaRejected()
		return nil, apperror.ErrQuotaExceeded(merchant.ApiQuotaLimit, merchant.ApiQuotaResetAt)
	}
	return &quota, nil
}

func (s *MerchantServiceImpl) GetApiQuota(ctx context.Context, id uuid.UUID) (*domain.APIQuota, error) {
	merchant, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	quota := merchant.Quota()
	return &quota, nil
}

func (s *MerchantServiceImpl) UpdateApiQuotaLimit(ctx context.Context, id uuid.UUID, limit int64) (*domain.Merchant, error) {
	if limit < 0 {
		return nil, apperror.Validation("api quota limit cannot be negative")
	}
	merchant, err := s.repo.UpdateApiQuotaLimit(ctx, id, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update quota limit: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("Merchant").WithDetail("merchant_id", id.String())
	}
	return merchant, nil
}

// ResetApiQuotas zeroes usage for every merchant and schedules the next reset.
func (s *MerchantServiceImpl) ResetApiQuotas(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.repo.ResetApiQuotas(ctx, now, now.Add(s.cfg.QuotaPeriod))
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("reset quotas: %w", err))
	}
	return n, nil
}

// PurgeExpiredVerificationTokens clears expired tokens of unverified
// merchants in batches.
func (s *MerchantServiceImpl) PurgeExpiredVerificationTokens(ctx context.Context) (int64, error) {
	var total int64
	for {
		now := s.now()
		ids, err := s.repo.FindExpiredVerificationTokens(ctx, now, tokenPurgeBatch)
		if err != nil {
			return total, apperror.InternalError(fmt.Errorf("find expired tokens: %w", err))
		}
		if len(ids) == 0 {
			return total, nil
		}

		n, err := s.repo.ClearVerificationTokens(ctx, ids, now)
		if err != nil {
			return total, apperror.InternalError(fmt.Errorf("clear expired tokens: %w", err))
		}
		total += n
		if n == 0 || len(ids) < tokenPurgeBatch {
			return total, nil
		}
	}
}

// Search lists merchants matching params.
func (s *MerchantServiceImpl) Search(ctx context.Context, params ports.MerchantSearchParams) (*ports.SearchResult, error) {
	if params.Page < 1 {
		return nil, apperror.Validation("page must be at least 1")
	}
	if params.Limit < 1 || params.Limit > maxSearchLimit {
		return nil, apperror.Validation(fmt.Sprintf("limit must be between 1 and %d", maxSearchLimit))
	}
	params.Query = strings.TrimSpace(params.Query)

	data, total, err := s.repo.Search(ctx, params)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("search merchants: %w", err))
	}
	if data == nil {
		data = []domain.Merchant{}
	}
	return &ports.SearchResult{
		Data:       data,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: int((total + int64(params.Limit) - 1) / int64(params.Limit)),
	}, nil
}

// GetStatistics returns aggregate counts, served from the stats cache when
// one is configured.
func (s *MerchantServiceImpl) GetStatistics(ctx context.Context) (*ports.MerchantStats, error) {
	if s.statsCache != nil {
		raw, err := s.statsCache.Get(ctx, statsCacheKey)
		if err != nil {
			s.log.Warn().Err(err).Msg("stats cache read failed")
		} else if raw != nil {
			var cached ports.MerchantStats
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	stats, err := s.repo.GetStatistics(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("merchant statistics: %w", err))
	}

	if s.statsCache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.statsCache.Set(ctx, statsCacheKey, raw, s.cfg.StatsCacheTTL); err != nil {
				s.log.Warn().Err(err).Msg("stats cache write failed")
			}
		}
	}
	return stats, nil
}
