package health

import (
	"context"
	"fmt"
	"time"

	"redwarm/internal/model"
	"redwarm/pkg/constants"
	"redwarm/pkg/interfaces"
	"redwarm/pkg/logger"
)

// Monitor audits the account population, the job queue and worker activity
// and produces a point-in-time SystemHealth snapshot on demand. It is a
// read-only observer: it never mutates account or job state, only its own
// alert window, so concurrent polls from multiple admin requests are safe.
type Monitor struct {
	store  interfaces.AccountStore
	queue  interfaces.JobQueue
	alerts *alertSet

	now func() time.Time
}

// NewMonitor creates a health monitor. One instance per process; the alert
// window lives with the instance and is lost on restart.
func NewMonitor(store interfaces.AccountStore, queue interfaces.JobQueue) *Monitor {
	return &Monitor{
		store:  store,
		queue:  queue,
		alerts: newAlertSet(),
		now:    time.Now,
	}
}

// PerformHealthCheck runs the four probes and assembles the snapshot.
// Overall status is the worst of the four, a plain worst-case reduction.
func (m *Monitor) PerformHealthCheck(ctx context.Context) *SystemHealth {
	now := m.now()

	checks := Checks{
		Database: m.checkDatabase(ctx, now),
		Redis:    m.checkQueue(ctx, now),
		Workers:  m.checkWorkers(ctx, now),
		Accounts: m.checkAccounts(ctx, now),
	}

	overall := StatusHealthy
	for _, c := range []CheckResult{checks.Database, checks.Redis, checks.Workers, checks.Accounts} {
		overall = Worst(overall, c.Status)
	}

	m.alerts.purge(now)

	return &SystemHealth{
		Status:    overall,
		Timestamp: now,
		Checks:    checks,
		Metrics:   m.collectMetrics(ctx),
		Alerts:    m.alerts.snapshot(),
	}
}

// checkDatabase liveness probe plus the stuck-account business rule: an
// account sitting in a non-terminal phase well past the nominal schedule
// signals an orchestration bug or an abandoned job.
func (m *Monitor) checkDatabase(ctx context.Context, now time.Time) CheckResult {
	if err := m.store.Ping(ctx); err != nil {
		m.alerts.raise(SeverityCritical, "database unreachable", "", now)
		return CheckResult{
			Status:  StatusCritical,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	cutoff := now.AddDate(0, 0, -constants.StuckAccountDays)
	stuck, err := m.store.CountStuckAccounts(ctx, cutoff)
	if err != nil {
		m.alerts.raise(SeverityCritical, "stuck-account probe failed", "", now)
		return CheckResult{
			Status:  StatusCritical,
			Message: fmt.Sprintf("stuck account query failed: %v", err),
		}
	}

	if stuck > 0 {
		m.alerts.raise(SeverityError,
			fmt.Sprintf("%d account(s) stuck in warmup for over %d days", stuck, constants.StuckAccountDays), "", now)
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("%d account(s) stuck past the warmup schedule", stuck),
			Details: map[string]interface{}{"stuck_accounts": stuck},
		}
	}

	return CheckResult{Status: StatusHealthy, Message: "database ok"}
}

// checkQueue broker liveness plus the job failure-rate probe.
// The degraded threshold is strictly greater than the limit, a queue at
// exactly 30% failures is still healthy.
func (m *Monitor) checkQueue(ctx context.Context, now time.Time) CheckResult {
	if err := m.queue.Ping(ctx); err != nil {
		m.alerts.raise(SeverityCritical, "queue broker unreachable", "", now)
		return CheckResult{
			Status:  StatusCritical,
			Message: fmt.Sprintf("queue ping failed: %v", err),
		}
	}

	counts, err := m.queue.GetJobCounts(ctx)
	if err != nil {
		m.alerts.raise(SeverityCritical, "queue counters probe failed", "", now)
		return CheckResult{
			Status:  StatusCritical,
			Message: fmt.Sprintf("queue counters failed: %v", err),
		}
	}

	total := counts.Completed + counts.Failed
	details := map[string]interface{}{
		"waiting":   counts.Waiting,
		"active":    counts.Active,
		"completed": counts.Completed,
		"failed":    counts.Failed,
	}

	if total > 0 {
		rate := float64(counts.Failed) / float64(total)
		details["failure_rate"] = rate
		if rate > constants.QueueFailureRateLimit {
			m.alerts.raise(SeverityError,
				fmt.Sprintf("job failure rate %.0f%% exceeds threshold", rate*100), "", now)
			return CheckResult{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("job failure rate %.2f above %.2f", rate, constants.QueueFailureRateLimit),
				Details: details,
			}
		}
	}

	return CheckResult{Status: StatusHealthy, Message: "queue ok", Details: details}
}

// checkWorkers inspects currently-active jobs; a job active longer than the
// stuck threshold means a worker never finished its unit of work.
func (m *Monitor) checkWorkers(ctx context.Context, now time.Time) CheckResult {
	active, err := m.queue.GetActiveJobs(ctx, 100)
	if err != nil {
		m.alerts.raise(SeverityCritical, "worker activity probe failed", "", now)
		return CheckResult{
			Status:  StatusCritical,
			Message: fmt.Sprintf("active job listing failed: %v", err),
		}
	}

	stuck := 0
	for _, job := range active {
		if job.ProcessedAt != nil && now.Sub(*job.ProcessedAt) > constants.StuckJobThreshold {
			stuck++
			m.alerts.raise(SeverityError, "warmup job stuck in active state", job.AccountID, now)
		}
	}

	details := map[string]interface{}{"active_jobs": len(active), "stuck_jobs": stuck}
	if stuck > 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("%d job(s) active for over %s", stuck, constants.StuckJobThreshold),
			Details: details,
		}
	}

	return CheckResult{Status: StatusHealthy, Message: "workers ok", Details: details}
}

// checkAccounts failure rate across the warmup population, plus the
// low-karma warning signal which alone never degrades the check.
func (m *Monitor) checkAccounts(ctx context.Context, now time.Time) CheckResult {
	accounts, err := m.store.ListWarmupAccounts(ctx)
	if err != nil {
		m.alerts.raise(SeverityCritical, "account population probe failed", "", now)
		return CheckResult{
			Status:  StatusCritical,
			Message: fmt.Sprintf("account listing failed: %v", err),
		}
	}

	failed := 0
	for _, account := range accounts {
		if account.WarmupStatus == model.WarmupFailed {
			failed++
		}

		if account.WarmupStatus.IsActivePhase() &&
			account.Karma < constants.LowKarmaThreshold &&
			daysInWarmup(account.WarmupStartedAt, now) >= constants.LowKarmaMinDays {
			m.alerts.raise(SeverityWarning,
				fmt.Sprintf("low karma (%d) after %d+ days of warmup", account.Karma, constants.LowKarmaMinDays),
				account.ID, now)
		}
	}

	details := map[string]interface{}{"warmup_accounts": len(accounts), "failed_accounts": failed}

	if len(accounts) > 0 {
		rate := float64(failed) / float64(len(accounts))
		details["failure_rate"] = rate
		if rate > constants.AccountFailureRateLimit {
			m.alerts.raise(SeverityError,
				fmt.Sprintf("account failure rate %.0f%% exceeds threshold", rate*100), "", now)
			return CheckResult{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("account failure rate %.2f above %.2f", rate, constants.AccountFailureRateLimit),
				Details: details,
			}
		}
	}

	return CheckResult{Status: StatusHealthy, Message: "accounts ok", Details: details}
}

func daysInWarmup(startedAt *time.Time, now time.Time) int {
	if startedAt == nil {
		return 0
	}
	d := now.Sub(*startedAt)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

func (m *Monitor) collectMetrics(ctx context.Context) Metrics {
	var metrics Metrics

	accounts, err := m.store.ListWarmupAccounts(ctx)
	if err == nil {
		for _, account := range accounts {
			switch {
			case account.WarmupStatus.IsActivePhase():
				metrics.ActiveAccounts++
			case account.WarmupStatus == model.WarmupCompleted:
				metrics.CompletedAccounts++
			case account.WarmupStatus == model.WarmupFailed:
				metrics.FailedAccounts++
			}
		}
	} else {
		logger.WarnCtx(ctx, "metrics: account listing failed: %v", err)
	}

	if avg, err := m.store.AverageCompletionDays(ctx); err == nil {
		metrics.AvgCompletionDays = avg
	}

	if counts, err := m.queue.GetJobCounts(ctx); err == nil {
		if total := counts.Completed + counts.Failed; total > 0 {
			metrics.JobSuccessRate = float64(counts.Completed) / float64(total)
		}
	}

	return metrics
}
