package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"redwarm/internal/model"
	"redwarm/pkg/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStore scripted AccountStore
type stubStore struct {
	pingErr       error
	stuck         int64
	stuckErr      error
	accounts      []*model.Account
	accountsErr   error
	avgCompletion float64
}

func (s *stubStore) FindByID(ctx context.Context, accountID string) (*model.Account, error) {
	return nil, nil
}

func (s *stubStore) UpdateFields(ctx context.Context, accountID string, updates map[string]interface{}) error {
	return nil
}

func (s *stubStore) TransitionStatus(ctx context.Context, accountID, fromStatus, toStatus string, updates map[string]interface{}) error {
	return nil
}

func (s *stubStore) ListWarmupAccounts(ctx context.Context) ([]*model.Account, error) {
	return s.accounts, s.accountsErr
}

// Mirrors the repository predicate: any non-terminal status, PAUSED
// included, started before the cutoff.
func (s *stubStore) CountStuckAccounts(ctx context.Context, startedBefore time.Time) (int64, error) {
	if s.stuck != 0 || s.stuckErr != nil {
		return s.stuck, s.stuckErr
	}
	var count int64
	for _, a := range s.accounts {
		if !a.IsWarmupAccount || a.WarmupStartedAt == nil || a.WarmupStatus.IsTerminal() {
			continue
		}
		if a.WarmupStartedAt.Before(startedBefore) {
			count++
		}
	}
	return count, nil
}

func (s *stubStore) AverageCompletionDays(ctx context.Context) (float64, error) {
	return s.avgCompletion, nil
}

func (s *stubStore) Ping(ctx context.Context) error { return s.pingErr }

// stubQueue scripted JobQueue
type stubQueue struct {
	pingErr error
	counts  interfaces.JobCounts
	active  []*interfaces.JobInfo
}

func (s *stubQueue) Enqueue(ctx context.Context, payload *model.WarmupJobPayload, delay time.Duration) error {
	return nil
}

func (s *stubQueue) FindJob(ctx context.Context, accountID string) (*interfaces.JobInfo, error) {
	return nil, nil
}

func (s *stubQueue) RemoveJob(ctx context.Context, accountID string) error { return nil }

func (s *stubQueue) GetJobCounts(ctx context.Context) (*interfaces.JobCounts, error) {
	c := s.counts
	return &c, nil
}

func (s *stubQueue) GetActiveJobs(ctx context.Context, limit int) ([]*interfaces.JobInfo, error) {
	return s.active, nil
}

func (s *stubQueue) Ping(ctx context.Context) error { return s.pingErr }

func newTestMonitor(store *stubStore, queue *stubQueue, now time.Time) *Monitor {
	m := NewMonitor(store, queue)
	m.now = func() time.Time { return now }
	return m
}

func TestPerformHealthCheck_AllHealthy(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m := newTestMonitor(&stubStore{}, &stubQueue{}, now)

	snapshot := m.PerformHealthCheck(context.Background())

	assert.Equal(t, StatusHealthy, snapshot.Status)
	assert.Equal(t, StatusHealthy, snapshot.Checks.Database.Status)
	assert.Equal(t, StatusHealthy, snapshot.Checks.Redis.Status)
	assert.Equal(t, StatusHealthy, snapshot.Checks.Workers.Status)
	assert.Equal(t, StatusHealthy, snapshot.Checks.Accounts.Status)
	assert.Empty(t, snapshot.Alerts)
}

func TestPerformHealthCheck_DatabaseDown(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m := newTestMonitor(&stubStore{pingErr: errors.New("connection refused")}, &stubQueue{}, now)

	snapshot := m.PerformHealthCheck(context.Background())

	assert.Equal(t, StatusCritical, snapshot.Status)
	assert.Equal(t, StatusCritical, snapshot.Checks.Database.Status)
	// Other probes still report independently
	assert.Equal(t, StatusHealthy, snapshot.Checks.Redis.Status)
}

func TestPerformHealthCheck_StuckAccountsDegrade(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m := newTestMonitor(&stubStore{stuck: 3}, &stubQueue{}, now)

	snapshot := m.PerformHealthCheck(context.Background())

	assert.Equal(t, StatusDegraded, snapshot.Status)
	assert.Equal(t, StatusDegraded, snapshot.Checks.Database.Status)
	require.Len(t, snapshot.Alerts, 1)
	assert.Equal(t, SeverityError, snapshot.Alerts[0].Severity)
}

func TestPerformHealthCheck_LongPausedAccountCountsAsStuck(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	started := now.AddDate(0, 0, -40)

	// Paused is not terminal, so a warmup parked this long is stuck too
	accounts := []*model.Account{
		{ID: "acc-1", IsWarmupAccount: true, WarmupStatus: model.WarmupPaused,
			WarmupStartedAt: &started, Karma: 50},
	}
	m := newTestMonitor(&stubStore{accounts: accounts}, &stubQueue{}, now)

	snapshot := m.PerformHealthCheck(context.Background())

	assert.Equal(t, StatusDegraded, snapshot.Checks.Database.Status)
	require.Len(t, snapshot.Alerts, 1)
	assert.Equal(t, SeverityError, snapshot.Alerts[0].Severity)
}

func TestCheckQueue_FailureRateBoundary(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("exactly 30 percent stays healthy", func(t *testing.T) {
		// 7 completed, 3 failed: rate is exactly 0.30
		queue := &stubQueue{counts: interfaces.JobCounts{Completed: 7, Failed: 3}}
		m := newTestMonitor(&stubStore{}, queue, now)

		snapshot := m.PerformHealthCheck(context.Background())
		assert.Equal(t, StatusHealthy, snapshot.Checks.Redis.Status)
	})

	t.Run("above 30 percent degrades", func(t *testing.T) {
		queue := &stubQueue{counts: interfaces.JobCounts{Completed: 6, Failed: 4}}
		m := newTestMonitor(&stubStore{}, queue, now)

		snapshot := m.PerformHealthCheck(context.Background())
		assert.Equal(t, StatusDegraded, snapshot.Checks.Redis.Status)
		assert.Equal(t, StatusDegraded, snapshot.Status)
	})

	t.Run("no finished jobs stays healthy", func(t *testing.T) {
		m := newTestMonitor(&stubStore{}, &stubQueue{}, now)
		snapshot := m.PerformHealthCheck(context.Background())
		assert.Equal(t, StatusHealthy, snapshot.Checks.Redis.Status)
	})
}

func TestCheckWorkers_StuckJob(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("long-active job degrades", func(t *testing.T) {
		startedAt := now.Add(-45 * time.Minute)
		queue := &stubQueue{active: []*interfaces.JobInfo{
			{ID: "job-1", AccountID: "acc-1", State: interfaces.JobStateActive, ProcessedAt: &startedAt},
		}}
		m := newTestMonitor(&stubStore{}, queue, now)

		snapshot := m.PerformHealthCheck(context.Background())
		assert.Equal(t, StatusDegraded, snapshot.Checks.Workers.Status)
		require.Len(t, snapshot.Alerts, 1)
		assert.Equal(t, "acc-1", snapshot.Alerts[0].AccountID)
	})

	t.Run("recently started job is fine", func(t *testing.T) {
		startedAt := now.Add(-5 * time.Minute)
		queue := &stubQueue{active: []*interfaces.JobInfo{
			{ID: "job-1", AccountID: "acc-1", State: interfaces.JobStateActive, ProcessedAt: &startedAt},
		}}
		m := newTestMonitor(&stubStore{}, queue, now)

		snapshot := m.PerformHealthCheck(context.Background())
		assert.Equal(t, StatusHealthy, snapshot.Checks.Workers.Status)
	})
}

func TestCheckAccounts_FailureRateBoundary(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	makeAccounts := func(failed, healthy int) []*model.Account {
		var out []*model.Account
		for i := 0; i < failed; i++ {
			out = append(out, &model.Account{ID: "f", IsWarmupAccount: true, WarmupStatus: model.WarmupFailed})
		}
		for i := 0; i < healthy; i++ {
			out = append(out, &model.Account{ID: "h", IsWarmupAccount: true, WarmupStatus: model.WarmupCompleted})
		}
		return out
	}

	t.Run("exactly 20 percent stays healthy", func(t *testing.T) {
		m := newTestMonitor(&stubStore{accounts: makeAccounts(1, 4)}, &stubQueue{}, now)
		snapshot := m.PerformHealthCheck(context.Background())
		assert.Equal(t, StatusHealthy, snapshot.Checks.Accounts.Status)
	})

	t.Run("above 20 percent degrades", func(t *testing.T) {
		m := newTestMonitor(&stubStore{accounts: makeAccounts(2, 5)}, &stubQueue{}, now)
		snapshot := m.PerformHealthCheck(context.Background())
		assert.Equal(t, StatusDegraded, snapshot.Checks.Accounts.Status)
	})
}

func TestCheckAccounts_LowKarmaWarnsWithoutDegrading(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	started := now.AddDate(0, 0, -20)

	accounts := []*model.Account{
		{ID: "acc-1", IsWarmupAccount: true, WarmupStatus: model.WarmupPhase3,
			WarmupStartedAt: &started, Karma: 5},
	}
	m := newTestMonitor(&stubStore{accounts: accounts}, &stubQueue{}, now)

	snapshot := m.PerformHealthCheck(context.Background())

	assert.Equal(t, StatusHealthy, snapshot.Checks.Accounts.Status, "low karma alone never degrades")
	require.Len(t, snapshot.Alerts, 1)
	assert.Equal(t, SeverityWarning, snapshot.Alerts[0].Severity)
	assert.Equal(t, "acc-1", snapshot.Alerts[0].AccountID)
}

func TestCheckAccounts_LowKarmaTooEarlyNoWarning(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	started := now.AddDate(0, 0, -10) // below the minimum day count

	accounts := []*model.Account{
		{ID: "acc-1", IsWarmupAccount: true, WarmupStatus: model.WarmupPhase2,
			WarmupStartedAt: &started, Karma: 5},
	}
	m := newTestMonitor(&stubStore{accounts: accounts}, &stubQueue{}, now)

	snapshot := m.PerformHealthCheck(context.Background())
	assert.Empty(t, snapshot.Alerts)
}

func TestCollectMetrics(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	store := &stubStore{
		accounts: []*model.Account{
			{WarmupStatus: model.WarmupPhase1, IsWarmupAccount: true},
			{WarmupStatus: model.WarmupPhase4, IsWarmupAccount: true},
			{WarmupStatus: model.WarmupCompleted, IsWarmupAccount: true},
			{WarmupStatus: model.WarmupFailed, IsWarmupAccount: true},
			{WarmupStatus: model.WarmupPaused, IsWarmupAccount: true},
		},
		avgCompletion: 31.5,
	}
	queue := &stubQueue{counts: interfaces.JobCounts{Completed: 9, Failed: 1}}
	m := newTestMonitor(store, queue, now)

	snapshot := m.PerformHealthCheck(context.Background())

	assert.Equal(t, 2, snapshot.Metrics.ActiveAccounts)
	assert.Equal(t, 1, snapshot.Metrics.CompletedAccounts)
	assert.Equal(t, 1, snapshot.Metrics.FailedAccounts)
	assert.InDelta(t, 31.5, snapshot.Metrics.AvgCompletionDays, 0.001)
	assert.InDelta(t, 0.9, snapshot.Metrics.JobSuccessRate, 0.001)
}
