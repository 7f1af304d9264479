package worker

import (
	"context"
	"time"

	"merchant-service/internal/core/ports"

	"github.com/rs/zerolog"
)

const (
	JobQuotaReset = "quota-reset"
	JobTokenPurge = "token-purge"
)

// MerchantJobs returns the quota reset and verification-token purge jobs.
func MerchantJobs(svc ports.MerchantService, quotaEvery, purgeEvery time.Duration, log zerolog.Logger) []Job {
	return []Job{
		{
			Name:     JobQuotaReset,
			Interval: quotaEvery,
			Run: func(ctx context.Context) error {
				n, err := svc.ResetApiQuotas(ctx)
				if err != nil {
					return err
				}
				log.Info().Int64("merchants", n).Msg("api quotas reset")
				return nil
			},
		},
		{
			Name:     JobTokenPurge,
			Interval: purgeEvery,
			Run: func(ctx context.Context) error {
				n, err := svc.PurgeExpiredVerificationTokens(ctx)
				if err != nil {
					return err
				}
				if n > 0 {
					log.Info().Int64("tokens", n).Msg("expired verification tokens purged")
				}
				return nil
			},
		},
	}
}
