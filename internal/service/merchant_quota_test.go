package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"
	"merchant-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMerchantService_CheckAndIncrementApiQuota(t *testing.T) {
	t.Run("consumes one unit", func(t *testing.T) {
		svc, m := setupMerchantService(t)
		merchant := newTestMerchant(domain.MerchantStatusActive)
		merchant.ApiQuotaUsed = 10

		m.repo.EXPECT().GetByID(gomock.Any(), merchant.ID).Return(merchant, nil)
		m.repo.EXPECT().IncrementApiQuota(gomock.Any(), merchant.ID).
			Return(domain.NewAPIQuota(11, 1000, merchant.ApiQuotaResetAt), true, nil)

		q, err := svc.CheckAndIncrementApiQuota(context.Background(), merchant.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(11), q.Used)
		assert.Equal(t, int64(989), q.Remaining)
	})

	t.Run("exhausted", func(t *testing.T) {
		svc, m := setupMerchantService(t)
		merchant := newTestMerchant(domain.MerchantStatusActive)
		merchant.ApiQuotaUsed = 1000
		m.repo.EXPECT().GetByID(gomock.Any(), merchant.ID).Return(merchant, nil)

		_, err := svc.CheckAndIncrementApiQuota(context.Background(), merchant.ID)
		appErr := assertAppCode(t, err, apperror.CodeQuotaExceeded)
		assert.Equal(t, int64(1000), appErr.Details["limit"])
		assert.Equal(t, merchant.ApiQuotaResetAt.Format(time.RFC3339), appErr.Details["reset_at"])
	})

	t.Run("lost race", func(t *testing.T) {
		svc, m := setupMerchantService(t)
		merchant := newTestMerchant(domain.MerchantStatusActive)
		merchant.ApiQuotaUsed = 999
		m.repo.EXPECT().GetByID(gomock.Any(), merchant.ID).Return(merchant, nil)
		m.repo.EXPECT().IncrementApiQuota(gomock.Any(), merchant.ID).Return(domain.APIQuota{}, false, nil)

		_, err := svc.CheckAndIncrementApiQuota(context.Background(), merchant.ID)
		assertAppCode(t, err, apperror.CodeQuotaExceeded)
	})

	for _, status := range []domain.MerchantStatus{
		domain.MerchantStatusPending,
		domain.MerchantStatusInactive,
		domain.MerchantStatusSuspended,
		domain.MerchantStatusClosed,
	} {
		t.Run(string(status)+" merchants are metered", func(t *testing.T) {
			svc, m := setupMerchantService(t)
			merchant := newTestMerchant(status)
			m.repo.EXPECT().GetByID(gomock.Any(), merchant.ID).Return(merchant, nil)
			m.repo.EXPECT().IncrementApiQuota(gomock.Any(), merchant.ID).
				Return(domain.NewAPIQuota(1, 1000, merchant.ApiQuotaResetAt), true, nil)

			q, err := svc.CheckAndIncrementApiQuota(context.Background(), merchant.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), q.Used)
		})
	}

	t.Run("unknown merchant", func(t *testing.T) {
		svc, m := setupMerchantService(t)
		id := uuid.New()
		m.repo.EXPECT().GetByID(gomock.Any(), id).Return(nil, nil)

		_, err := svc.CheckAndIncrementApiQuota(context.Background(), id)
		assertAppCode(t, err, apperror.CodeNotFound)
	})
}

func TestMerchantService_GetApiQuota(t *testing.T) {
	svc, m := setupMerchantService(t)
	merchant := newTestMerchant(domain.MerchantStatusActive)
	merchant.ApiQuotaUsed = 1200
	m.repo.EXPECT().GetByID(gomock.Any(), merchant.ID).Return(merchant, nil)

	q, err := svc.GetApiQuota(context.Background(), merchant.ID)
	require.NoError(t, err)
	assert.Zero(t, q.Remaining, "remaining is clamped at zero")
}

func TestMerchantService_UpdateApiQuotaLimit(t *testing.T) {
	svc, m := setupMerchantService(t)
	id := uuid.New()

	_, err := svc.UpdateApiQuotaLimit(context.Background(), id, -1)
	assertAppCode(t, err, apperror.CodeValidation)

	m.repo.EXPECT().UpdateApiQuotaLimit(gomock.Any(), id, int64(5000)).Return(nil, nil)
	_, err = svc.UpdateApiQuotaLimit(context.Background(), id, 5000)
	assertAppCode(t, err, apperror.CodeNotFound)

	updated := newTestMerchant(domain.MerchantStatusActive)
	updated.ApiQuotaLimit = 0
	m.repo.EXPECT().UpdateApiQuotaLimit(gomock.Any(), id, int64(0)).Return(updated, nil)
	got, err := svc.UpdateApiQuotaLimit(context.Background(), id, 0)
	require.NoError(t, err)
	assert.Zero(t, got.ApiQuotaLimit)
}

func TestMerchantService_ResetApiQuotas(t *testing.T) {
	svc, m := setupMerchantService(t)
	m.repo.EXPECT().ResetApiQuotas(gomock.Any(), testNow, testNow.Add(24*time.Hour)).Return(int64(7), nil)

	n, err := svc.ResetApiQuotas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestMerchantService_PurgeExpiredVerificationTokens_Batches(t *testing.T) {
	svc, m := setupMerchantService(t)

	full := make([]uuid.UUID, tokenPurgeBatch)
	for i := range full {
		full[i] = uuid.New()
	}
	tail := []uuid.UUID{uuid.New(), uuid.New()}

	gomock.InOrder(
		m.repo.EXPECT().FindExpiredVerificationTokens(gomock.Any(), testNow, tokenPurgeBatch).Return(full, nil),
		m.repo.EXPECT().ClearVerificationTokens(gomock.Any(), full, testNow).Return(int64(len(full)), nil),
		m.repo.EXPECT().FindExpiredVerificationTokens(gomock.Any(), testNow, tokenPurgeBatch).Return(tail, nil),
		m.repo.EXPECT().ClearVerificationTokens(gomock.Any(), tail, testNow).Return(int64(len(tail)), nil),
	)

	n, err := svc.PurgeExpiredVerificationTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(tokenPurgeBatch+2), n)
}

func TestMerchantService_PurgeExpiredVerificationTokens_NothingToDo(t *testing.T) {
	svc, m := setupMerchantService(t)
	m.repo.EXPECT().FindExpiredVerificationTokens(gomock.Any(), testNow, tokenPurgeBatch).Return(nil, nil)

	n, err := svc.PurgeExpiredVerificationTokens(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMerchantService_Search(t *testing.T) {
	t.Run("pagination bounds", func(t *testing.T) {
		svc, _ := setupMerchantService(t)
		for _, p := range []ports.MerchantSearchParams{
			{Page: 0, Limit: 20},
			{Page: 1, Limit: 0},
			{Page: 1, Limit: 101},
		} {
			_, err := svc.Search(context.Background(), p)
			assertAppCode(t, err, apperror.CodeValidation)
		}
	})

	t.Run("total pages", func(t *testing.T) {
		svc, m := setupMerchantService(t)
		status := domain.MerchantStatusActive
		params := ports.MerchantSearchParams{Query: " shop ", Status: &status, Page: 2, Limit: 20}

		m.repo.EXPECT().Search(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p ports.MerchantSearchParams) ([]domain.Merchant, int64, error) {
				assert.Equal(t, "shop", p.Query)
				return []domain.Merchant{*newTestMerchant(status)}, 41, nil
			})

		res, err := svc.Search(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, int64(41), res.Total)
		assert.Equal(t, 3, res.TotalPages)
		assert.Equal(t, 2, res.Page)
		assert.Len(t, res.Data, 1)
	})
}

func TestMerchantService_GetStatistics_Cache(t *testing.T) {
	stats := &ports.MerchantStats{
		Total:         3,
		EmailVerified: 2,
		ByStatus:      map[domain.MerchantStatus]int64{domain.MerchantStatusActive: 2, domain.MerchantStatusPending: 1},
	}

	t.Run("miss populates cache", func(t *testing.T) {
		svc, m := setupMerchantService(t)
		m.cache.EXPECT().Get(gomock.Any(), statsCacheKey).Return(nil, nil)
		m.repo.EXPECT().GetStatistics(gomock.Any()).Return(stats, nil)
		m.cache.EXPECT().Set(gomock.Any(), statsCacheKey, gomock.Any(), 60*time.Second).Return(nil)

		got, err := svc.GetStatistics(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.Total)
	})

	t.Run("hit skips store", func(t *testing.T) {
		svc, m := setupMerchantService(t)
		raw, err := json.Marshal(stats)
		require.NoError(t, err)
		m.cache.EXPECT().Get(gomock.Any(), statsCacheKey).Return(raw, nil)

		got, err := svc.GetStatistics(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.ByStatus[domain.MerchantStatusActive])
	})

	t.Run("cache errors fall through", func(t *testing.T) {
		svc, m := setupMerchantService(t)
		m.cache.EXPECT().Get(gomock.Any(), statsCacheKey).Return(nil, errors.New("redis down"))
		m.repo.EXPECT().GetStatistics(gomock.Any()).Return(stats, nil)
		m.cache.EXPECT().Set(gomock.Any(), statsCacheKey, gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

		got, err := svc.GetStatistics(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.Total)
	})
}
