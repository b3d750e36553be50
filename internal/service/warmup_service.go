package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"redwarm/internal/model"
	"redwarm/pkg/config"
	"redwarm/pkg/interfaces"
	"redwarm/pkg/logger"
)

var (
	// ErrAccountNotFound the account does not exist
	ErrAccountNotFound = errors.New("account not found")

	// ErrAlreadyInWarmup start was called on an account already mid-warmup
	ErrAlreadyInWarmup = errors.New("account already in warmup")

	// ErrNotPaused resume was called on an account that is not paused
	ErrNotPaused = errors.New("account warmup is not paused")
)

// WarmupService drives the warmup state machine: it starts, pauses,
// resumes and stops an account's warmup and schedules the next queue job.
// It is the sole writer of warmup control-state transitions; phase
// advancement during normal operation belongs to the worker.
type WarmupService struct {
	store interfaces.AccountStore
	queue interfaces.JobQueue

	now func() time.Time
}

// NewWarmupService creates a new warmup service
func NewWarmupService(store interfaces.AccountStore, queue interfaces.JobQueue) *WarmupService {
	return &WarmupService{
		store: store,
		queue: queue,
		now:   time.Now,
	}
}

// StartWarmup begins the warmup schedule for an account.
// The first job is enqueued with a short randomized delay so that a batch
// of new accounts does not produce a thundering herd of identical activity.
// Restarting a FAILED account is allowed and resets the schedule.
func (s *WarmupService) StartWarmup(ctx context.Context, accountID string) error {
	account, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}

	if account.IsWarmupAccount &&
		account.WarmupStatus != model.WarmupNotStarted &&
		account.WarmupStatus != model.WarmupFailed {
		return ErrAlreadyInWarmup
	}

	now := s.now()
	updates := map[string]interface{}{
		"is_warmup_account":   true,
		"warmup_fail_reason":  "",
		"warmup_completed_at": nil,
	}
	if account.WarmupStartedAt == nil || account.WarmupStatus == model.WarmupFailed {
		// A restart gets a clean schedule. The old progress log is dropped
		// too, otherwise day indices from the new start would merge new
		// actions into stale day records.
		updates["warmup_started_at"] = now
		updates["warmup_progress"] = nil
	}

	if err := s.store.TransitionStatus(ctx, accountID,
		string(account.WarmupStatus), string(model.WarmupPhase1), updates); err != nil {
		return fmt.Errorf("failed to start warmup: %w", err)
	}

	// Withdraw any stale job before scheduling the replacement, the queue
	// does not deduplicate by account on its own
	if err := s.queue.RemoveJob(ctx, accountID); err != nil {
		return err
	}

	delay := s.firstStepDelay()
	payload := &model.WarmupJobPayload{
		AccountID:   accountID,
		TargetPhase: model.WarmupPhase1,
		EnqueuedAt:  now,
	}
	if err := s.queue.Enqueue(ctx, payload, delay); err != nil {
		return fmt.Errorf("failed to schedule first warmup step: %w", err)
	}

	logger.InfoCtx(ctx, "warmup started, account_id: %s, first step in %s", accountID, delay)
	return nil
}

// PauseWarmup holds the account at its current phase and withdraws the
// outstanding job. The job is not completed, no progress is recorded for
// it. Calling pause on an already-paused or terminal account is a no-op.
func (s *WarmupService) PauseWarmup(ctx context.Context, accountID string) error {
	account, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}

	if account.WarmupStatus == model.WarmupPaused || account.WarmupStatus.IsTerminal() ||
		account.WarmupStatus == model.WarmupNotStarted {
		return nil
	}

	// CAS on the status read above, so a concurrent stop or a worker
	// failing the account does not get silently overwritten
	if err := s.store.TransitionStatus(ctx, accountID,
		string(account.WarmupStatus), string(model.WarmupPaused), nil); err != nil {
		return fmt.Errorf("failed to pause warmup: %w", err)
	}

	if err := s.queue.RemoveJob(ctx, accountID); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "warmup paused, account_id: %s", accountID)
	return nil
}

// ResumeWarmup resumes a paused warmup. Elapsed time does not stop while
// paused, so the account resumes into the phase implied by time since
// warmupStartedAt rather than the exact phase it held before pausing.
// When the schedule window has already elapsed the warmup completes
// immediately instead of scheduling another step.
func (s *WarmupService) ResumeWarmup(ctx context.Context, accountID string) error {
	account, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}

	if account.WarmupStatus != model.WarmupPaused {
		return ErrNotPaused
	}

	now := s.now()
	expected := CalculatePhase(account.WarmupStartedAt, now)

	if expected == model.WarmupCompleted {
		if err := s.store.TransitionStatus(ctx, accountID,
			string(model.WarmupPaused), string(model.WarmupCompleted),
			map[string]interface{}{"warmup_completed_at": now}); err != nil {
			return fmt.Errorf("failed to complete warmup on resume: %w", err)
		}
		logger.InfoCtx(ctx, "warmup completed on resume, account_id: %s", accountID)
		return nil
	}

	if err := s.store.TransitionStatus(ctx, accountID,
		string(model.WarmupPaused), string(expected), nil); err != nil {
		return fmt.Errorf("failed to resume warmup: %w", err)
	}

	if err := s.queue.RemoveJob(ctx, accountID); err != nil {
		return err
	}

	payload := &model.WarmupJobPayload{
		AccountID:   accountID,
		TargetPhase: expected,
		EnqueuedAt:  now,
	}
	if err := s.queue.Enqueue(ctx, payload, s.firstStepDelay()); err != nil {
		return fmt.Errorf("failed to schedule warmup step on resume: %w", err)
	}

	logger.InfoCtx(ctx, "warmup resumed, account_id: %s, phase: %s", accountID, expected)
	return nil
}

// StopWarmup terminates the warmup. Stop is modeled as the FAILED terminal
// state with a user_stopped reason, it is irreversible through resume and
// idempotent: a second call changes nothing and returns no error.
func (s *WarmupService) StopWarmup(ctx context.Context, accountID string) error {
	account, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}

	if account.WarmupStatus == model.WarmupFailed {
		// Still make sure no orphaned job is left behind
		return s.queue.RemoveJob(ctx, accountID)
	}
	if account.WarmupStatus == model.WarmupNotStarted || account.WarmupStatus == model.WarmupCompleted {
		return nil
	}

	if err := s.store.TransitionStatus(ctx, accountID,
		string(account.WarmupStatus), string(model.WarmupFailed),
		map[string]interface{}{"warmup_fail_reason": string(model.FailReasonUserStopped)}); err != nil {
		return fmt.Errorf("failed to stop warmup: %w", err)
	}

	if err := s.queue.RemoveJob(ctx, accountID); err != nil {
		return err
	}

	logger.InfoCtx(ctx, "warmup stopped, account_id: %s", accountID)
	return nil
}

// GetWarmupStatus returns the owner-facing view of an account's warmup,
// including expected-phase drift while paused.
func (s *WarmupService) GetWarmupStatus(ctx context.Context, accountID string) (*model.WarmupStatusResponse, error) {
	account, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	now := s.now()
	return &model.WarmupStatusResponse{
		AccountID:       account.ID,
		Status:          account.WarmupStatus,
		ExpectedPhase:   CalculatePhase(account.WarmupStartedAt, now),
		DaysInWarmup:    DaysInWarmup(account.WarmupStartedAt, now),
		ProgressPercent: ProgressPercent(account.WarmupStatus, account.WarmupStartedAt, now),
		Karma:           account.Karma,
		StartedAt:       account.WarmupStartedAt,
		CompletedAt:     account.WarmupCompletedAt,
		FailReason:      account.WarmupFailReason,
		Progress:        account.WarmupProgress,
	}, nil
}

// firstStepDelay randomized near-term delay for the first (or resumed) step
func (s *WarmupService) firstStepDelay() time.Duration {
	maxMinutes := 30
	if config.GlobalConfig != nil && config.GlobalConfig.Warmup.FirstStepMaxDelay > 0 {
		maxMinutes = config.GlobalConfig.Warmup.FirstStepMaxDelay
	}
	return time.Duration(1+rand.Intn(maxMinutes)) * time.Minute
}
