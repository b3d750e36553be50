package service

import (
	"time"

	"redwarm/internal/model"
	"redwarm/pkg/constants"
)

// CalculatePhase maps elapsed wall-clock days since warmup start to the
// expected phase under the fixed 30-day schedule. Pure and side-effect-free;
// consulted by the worker to pick the next action set and by the read side
// to show expected-phase drift for paused accounts.
func CalculatePhase(startedAt *time.Time, now time.Time) model.WarmupStatus {
	if startedAt == nil {
		return model.WarmupNotStarted
	}

	days := elapsedDays(*startedAt, now)
	switch {
	case days <= constants.Phase1EndDay:
		return model.WarmupPhase1
	case days <= constants.Phase2EndDay:
		return model.WarmupPhase2
	case days <= constants.Phase3EndDay:
		return model.WarmupPhase3
	case days <= constants.WarmupTotalDays:
		return model.WarmupPhase4
	default:
		return model.WarmupCompleted
	}
}

// DaysInWarmup returns whole elapsed days since warmup start, 0 when unset
func DaysInWarmup(startedAt *time.Time, now time.Time) int {
	if startedAt == nil {
		return 0
	}
	return elapsedDays(*startedAt, now)
}

// ProgressPercent reports warmup completion as a percentage.
// Exactly 100 iff the account has completed the schedule.
func ProgressPercent(status model.WarmupStatus, startedAt *time.Time, now time.Time) int {
	if status == model.WarmupCompleted {
		return 100
	}
	if startedAt == nil || status == model.WarmupNotStarted {
		return 0
	}

	days := elapsedDays(*startedAt, now)
	pct := days * 100 / constants.WarmupTotalDays
	if pct > 99 {
		// 100 is reserved for COMPLETED
		pct = 99
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

func elapsedDays(startedAt, now time.Time) int {
	d := now.Sub(startedAt)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}
