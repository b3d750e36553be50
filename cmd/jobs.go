package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"redwarm/internal/jobs"
	"redwarm/internal/service"
	"redwarm/pkg/health"
	"redwarm/pkg/lock"
	"redwarm/pkg/logger"
	"redwarm/pkg/notification"
)

func (app *Application) initJobs() error {
	if app.healthService == nil {
		logger.WarnCtx(app.ctx, "Service layer not fully initialized yet, skipping background task registration")
		return nil
	}

	manager := jobs.NewManager(app.ctx)

	checkInterval := time.Duration(app.config.Health.CheckInterval) * time.Minute
	if checkInterval <= 0 {
		checkInterval = 5 * time.Minute
	}

	// Distributed lock keeps replicas from double-running the periodic
	// health check. If Redis is unavailable the lock downgrades to
	// single-instance mode.
	var redisClient *redis.Client
	if app.redisClient != nil {
		redisClient = app.redisClient.GetClient()
	}

	healthCheckLock := lock.NewRedisDistributedLock(redisClient, "health:check-lock")
	manager.Register(newHealthCheckJob(checkInterval, app.healthService, app.notifier, healthCheckLock))

	app.jobsManager = manager
	return nil
}

// healthCheckJob periodically snapshots system health and pushes an alert
// notification when the pipeline is degraded or critical.
type healthCheckJob struct {
	interval        time.Duration
	healthService   *service.HealthService
	notifier        *notification.FeishuNotifier
	distributedLock lock.DistributedLock
}

func newHealthCheckJob(interval time.Duration, svc *service.HealthService, notifier *notification.FeishuNotifier, l lock.DistributedLock) jobs.Job {
	return &healthCheckJob{
		interval:        interval,
		healthService:   svc,
		notifier:        notifier,
		distributedLock: l,
	}
}

func (j *healthCheckJob) Name() string {
	return "health-check"
}

func (j *healthCheckJob) Interval() time.Duration {
	return j.interval
}

func (j *healthCheckJob) Run(ctx context.Context) error {
	if j.healthService == nil {
		return fmt.Errorf("health service not configured")
	}

	// Try to acquire distributed lock
	if j.distributedLock != nil {
		acquired, err := j.distributedLock.TryLock(ctx)
		if err != nil || !acquired {
			logger.DebugCtx(ctx, "another instance is running the health check, skipping this cycle")
			return nil
		}
		defer j.distributedLock.Unlock(ctx)
	}

	logger.DebugCtx(ctx, "running periodic health check")
	snapshot := j.healthService.PerformHealthCheck(ctx)

	if snapshot.Status == health.StatusHealthy {
		return nil
	}

	logger.WarnCtx(ctx, "system health %s, checks: db=%s redis=%s workers=%s accounts=%s",
		snapshot.Status,
		snapshot.Checks.Database.Status,
		snapshot.Checks.Redis.Status,
		snapshot.Checks.Workers.Status,
		snapshot.Checks.Accounts.Status)

	if j.notifier != nil {
		if err := j.notifier.SendHealthAlert(ctx, snapshot); err != nil {
			logger.WarnCtx(ctx, "failed to send health alert notification: %v", err)
		}
	}

	return nil
}
