package service

import (
	"context"

	"redwarm/pkg/health"
	"redwarm/pkg/interfaces"
)

// HealthService wraps health.Monitor for the handler and job layers.
// The monitor instance is constructed once per process and injected
// wherever a health check is invoked; its alert window lives with it.
type HealthService struct {
	monitor *health.Monitor
}

// NewHealthService creates a new health service
func NewHealthService(store interfaces.AccountStore, queue interfaces.JobQueue) *HealthService {
	return &HealthService{monitor: health.NewMonitor(store, queue)}
}

// PerformHealthCheck produces a point-in-time system health snapshot
func (s *HealthService) PerformHealthCheck(ctx context.Context) *health.SystemHealth {
	return s.monitor.PerformHealthCheck(ctx)
}
