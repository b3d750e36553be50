package model

import (
	"encoding/json"
	"time"
)

// WarmupStatus account warmup status
type WarmupStatus string

const (
	WarmupNotStarted WarmupStatus = "NOT_STARTED"
	WarmupPhase1     WarmupStatus = "PHASE_1_UPVOTES"
	WarmupPhase2     WarmupStatus = "PHASE_2_COMMENTS"
	WarmupPhase3     WarmupStatus = "PHASE_3_POSTS"
	WarmupPhase4     WarmupStatus = "PHASE_4_MIXED"
	WarmupCompleted  WarmupStatus = "COMPLETED"
	WarmupPaused     WarmupStatus = "PAUSED"
	WarmupFailed     WarmupStatus = "FAILED"
)

func (s WarmupStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further warmup jobs may be scheduled
func (s WarmupStatus) IsTerminal() bool {
	return s == WarmupCompleted || s == WarmupFailed
}

// IsActivePhase reports whether the status is one of the four working phases
func (s WarmupStatus) IsActivePhase() bool {
	switch s {
	case WarmupPhase1, WarmupPhase2, WarmupPhase3, WarmupPhase4:
		return true
	}
	return false
}

// FailReason distinguishes an operator stop from a genuine permanent failure
type FailReason string

const (
	FailReasonUserStopped    FailReason = "user_stopped"
	FailReasonPermanentError FailReason = "permanent_error"
)

// ActionType a single Reddit action kind performed during warmup
type ActionType string

const (
	ActionUpvote  ActionType = "upvote"
	ActionComment ActionType = "comment"
	ActionPost    ActionType = "post"
)

// ActionRecord one executed action inside a day record
type ActionRecord struct {
	Type      ActionType `json:"type"`
	Count     int        `json:"count"`
	Timestamp time.Time  `json:"timestamp"`
}

// DayRecord actions executed on one warmup day
type DayRecord struct {
	Day     int            `json:"day"` // day index since warmup start, 0-based
	Phase   WarmupStatus   `json:"phase"`
	Actions []ActionRecord `json:"actions"`
}

// WarmupProgress ordered per-day action log
type WarmupProgress []DayRecord

// Append records actions for the given day, merging into an existing
// day entry when the worker runs more than once per day.
func (p WarmupProgress) Append(day int, phase WarmupStatus, actions []ActionRecord) WarmupProgress {
	for i := range p {
		if p[i].Day == day {
			p[i].Actions = append(p[i].Actions, actions...)
			return p
		}
	}
	return append(p, DayRecord{Day: day, Phase: phase, Actions: actions})
}

// TotalActions counts all executed actions across the log
func (p WarmupProgress) TotalActions() int {
	total := 0
	for _, d := range p {
		for _, a := range d.Actions {
			total += a.Count
		}
	}
	return total
}

// Account one Reddit identity under warmup management
type Account struct {
	ID                string         `json:"id"`
	Username          string         `json:"username"`
	IsWarmupAccount   bool           `json:"is_warmup_account"`
	WarmupStatus      WarmupStatus   `json:"warmup_status"`
	WarmupStartedAt   *time.Time     `json:"warmup_started_at,omitempty"`
	WarmupCompletedAt *time.Time     `json:"warmup_completed_at,omitempty"`
	WarmupFailReason  FailReason     `json:"warmup_fail_reason,omitempty"`
	WarmupProgress    WarmupProgress `json:"warmup_progress,omitempty"`
	Karma             int            `json:"karma"`
	Connected         bool           `json:"connected"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// WarmupStatusResponse read-side warmup state for an account owner
type WarmupStatusResponse struct {
	AccountID       string         `json:"account_id"`
	Status          WarmupStatus   `json:"status"`
	ExpectedPhase   WarmupStatus   `json:"expected_phase"`
	DaysInWarmup    int            `json:"days_in_warmup"`
	ProgressPercent int            `json:"progress_percent"`
	Karma           int            `json:"karma"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	FailReason      FailReason     `json:"fail_reason,omitempty"`
	Progress        WarmupProgress `json:"progress,omitempty"`
}

// WarmupJobPayload queue payload for one scheduled warmup step
type WarmupJobPayload struct {
	AccountID   string       `json:"account_id"`
	TargetPhase WarmupStatus `json:"target_phase"`
	EnqueuedAt  time.Time    `json:"enqueued_at"`
}

// ToJSON converts the payload to JSON bytes
func (p *WarmupJobPayload) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

// FromJSON parses the payload from JSON bytes
func (p *WarmupJobPayload) FromJSON(data []byte) error {
	return json.Unmarshal(data, p)
}
