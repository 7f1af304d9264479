package worker

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"merchant-service/internal/core/ports/mocks"
	"merchant-service/pkg/metrics"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestScheduler_RunOnce_WithLock(t *testing.T) {
	ctrl := gomock.NewController(t)
	lock := mocks.NewMockJobLock(ctrl)
	m := metrics.New()
	s := NewScheduler(lock, time.Minute, m, zerolog.Nop())

	var runs int
	job := Job{Name: "quota-reset", Interval: time.Hour, Run: func(context.Context) error { runs++; return nil }}

	gomock.InOrder(
		lock.EXPECT().Acquire(gomock.Any(), "quota-reset", time.Minute).Return(true, nil),
		lock.EXPECT().Release(gomock.Any(), "quota-reset").Return(nil),
	)
	s.RunOnce(context.Background(), job)

	lock.EXPECT().Acquire(gomock.Any(), "quota-reset", time.Minute).Return(false, nil)
	s.RunOnce(context.Background(), job)

	lock.EXPECT().Acquire(gomock.Any(), "quota-reset", time.Minute).Return(false, errors.New("redis down"))
	s.RunOnce(context.Background(), job)

	assert.Equal(t, 1, runs, "only the lock holder runs the job")
	assert.Equal(t, 1.0, jobRuns(t, m, "quota-reset", "success"))
	assert.Equal(t, 1.0, jobRuns(t, m, "quota-reset", "skipped"))
	assert.Equal(t, 1.0, jobRuns(t, m, "quota-reset", "lock_error"))
}

func TestScheduler_RunOnce_ReleasesOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	lock := mocks.NewMockJobLock(ctrl)
	m := metrics.New()
	s := NewScheduler(lock, time.Minute, m, zerolog.Nop())

	lock.EXPECT().Acquire(gomock.Any(), "token-purge", time.Minute).Return(true, nil)
	lock.EXPECT().Release(gomock.Any(), "token-purge").Return(nil)

	s.RunOnce(context.Background(), Job{Name: "token-purge", Run: func(context.Context) error { return errors.New("db down") }})
	assert.Equal(t, 1.0, jobRuns(t, m, "token-purge", "error"))
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(nil, 0, nil, zerolog.Nop())

	var ticks atomic.Int32
	s.Add(Job{Name: "tick", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
		ticks.Add(1)
		return nil
	}})
	s.Add(Job{Name: "disabled", Interval: 0, Run: func(context.Context) error {
		t.Error("disabled job must not run")
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() { s.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}

func TestMerchantJobs(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockMerchantService(ctrl)
	jobs := MerchantJobs(svc, 24*time.Hour, time.Hour, zerolog.Nop())
	require.Len(t, jobs, 2)

	svc.EXPECT().ResetApiQuotas(gomock.Any()).Return(int64(3), nil)
	svc.EXPECT().PurgeExpiredVerificationTokens(gomock.Any()).Return(int64(0), errors.New("db down"))

	assert.Equal(t, JobQuotaReset, jobs[0].Name)
	assert.NoError(t, jobs[0].Run(context.Background()))
	assert.Equal(t, JobTokenPurge, jobs[1].Name)
	assert.EqualError(t, jobs[1].Run(context.Background()), "db down")
}

func jobRuns(t *testing.T, m *metrics.Metrics, job, outcome string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), "scheduler_job_runs_total") {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["job"] == job && labels["outcome"] == outcome {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
