package health

import "time"

// CheckStatus classification of one probe
type CheckStatus string

const (
	StatusHealthy  CheckStatus = "healthy"
	StatusDegraded CheckStatus = "degraded"
	StatusCritical CheckStatus = "critical"
)

// severity rank for the worst-of reduction
func (s CheckStatus) rank() int {
	switch s {
	case StatusCritical:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// Worst returns the worse of two statuses
func Worst(a, b CheckStatus) CheckStatus {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// AlertSeverity alert severity
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityError    AlertSeverity = "error"
	SeverityCritical AlertSeverity = "critical"
)

// Alert transient diagnostic message raised by a health check
type Alert struct {
	ID        string        `json:"id"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	AccountID string        `json:"account_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// CheckResult outcome of one independent probe
type CheckResult struct {
	Status  CheckStatus            `json:"status"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Checks the four independent probes
type Checks struct {
	Database CheckResult `json:"database"`
	Redis    CheckResult `json:"redis"`
	Workers  CheckResult `json:"workers"`
	Accounts CheckResult `json:"accounts"`
}

// Metrics reported alongside the checks, not gating status
type Metrics struct {
	ActiveAccounts    int     `json:"active_accounts"`
	CompletedAccounts int     `json:"completed_accounts"`
	FailedAccounts    int     `json:"failed_accounts"`
	AvgCompletionDays float64 `json:"avg_completion_days"`
	JobSuccessRate    float64 `json:"job_success_rate"`
}

// SystemHealth point-in-time snapshot of the whole pipeline
type SystemHealth struct {
	Status    CheckStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Checks    Checks      `json:"checks"`
	Metrics   Metrics     `json:"metrics"`
	Alerts    []Alert     `json:"alerts"`
}
