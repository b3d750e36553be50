package worker

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"redwarm/internal/model"
	"redwarm/internal/service"
	"redwarm/pkg/config"
	"redwarm/pkg/interfaces"
	"redwarm/pkg/logger"
	"redwarm/pkg/reddit"

	"github.com/hibiken/asynq"
)

// WarmupWorker executes one scheduled warmup step per invocation: it runs
// the phase-appropriate action set against Reddit, records progress, and
// either advances the phase, reschedules the same phase, or finalizes the
// warmup. Transient Reddit errors are handed back to the queue for retry;
// only classified permanent failures drive the account to FAILED.
type WarmupWorker struct {
	store  interfaces.AccountStore
	queue  interfaces.JobQueue
	reddit interfaces.RedditClient

	now func() time.Time
}

// NewWarmupWorker creates a warmup worker
func NewWarmupWorker(store interfaces.AccountStore, queue interfaces.JobQueue, client interfaces.RedditClient) *WarmupWorker {
	return &WarmupWorker{
		store:  store,
		queue:  queue,
		reddit: client,
		now:    time.Now,
	}
}

// actionStep one planned slice of a step's action set
type actionStep struct {
	action model.ActionType
	count  int
}

// ProcessTask implements asynq.Handler
func (w *WarmupWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload model.WarmupJobPayload
	if err := payload.FromJSON(task.Payload()); err != nil {
		// A malformed payload never improves with retries
		return fmt.Errorf("invalid warmup payload: %v: %w", err, asynq.SkipRetry)
	}

	account, err := w.store.FindByID(ctx, payload.AccountID)
	if err != nil {
		return fmt.Errorf("failed to load account %s: %w", payload.AccountID, err)
	}
	if account == nil {
		logger.WarnCtx(ctx, "warmup job for unknown account %s, dropping", payload.AccountID)
		return nil
	}

	// The orchestrator may have paused or stopped the warmup after this
	// job was scheduled; honor the withdraw and schedule nothing further.
	if !account.IsWarmupAccount || !account.WarmupStatus.IsActivePhase() {
		logger.InfoCtx(ctx, "warmup job skipped, account_id: %s, status: %s",
			account.ID, account.WarmupStatus)
		return nil
	}

	now := w.now()
	expected := service.CalculatePhase(account.WarmupStartedAt, now)

	if expected == model.WarmupCompleted {
		return w.complete(ctx, account, now)
	}

	records, karma, err := w.performActions(ctx, account, expected, now)
	if err != nil {
		return err
	}

	day := service.DaysInWarmup(account.WarmupStartedAt, now)
	progress := account.WarmupProgress.Append(day, expected, records)

	updates := map[string]interface{}{
		"warmup_progress": progress,
	}
	if karma > 0 {
		updates["karma"] = karma
	}

	// Re-read before advancing: a pause or stop issued while this step ran
	// must win over the phase advance, and must suppress the next job.
	fresh, err := w.store.FindByID(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("failed to reload account %s: %w", account.ID, err)
	}
	if fresh == nil || !fresh.WarmupStatus.IsActivePhase() {
		if updErr := w.store.UpdateFields(ctx, account.ID, updates); updErr != nil {
			logger.WarnCtx(ctx, "failed to record progress for %s: %v", account.ID, updErr)
		}
		logger.InfoCtx(ctx, "warmup step finished without reschedule, account_id: %s", account.ID)
		return nil
	}

	if fresh.WarmupStatus != expected {
		updates["warmup_status"] = string(expected)
		logger.InfoCtx(ctx, "warmup phase advanced, account_id: %s, %s -> %s",
			account.ID, fresh.WarmupStatus, expected)
	}

	if err := w.store.UpdateFields(ctx, account.ID, updates); err != nil {
		return fmt.Errorf("failed to record warmup progress: %w", err)
	}

	next := &model.WarmupJobPayload{
		AccountID:   account.ID,
		TargetPhase: expected,
		EnqueuedAt:  now,
	}
	if err := w.queue.Enqueue(ctx, next, w.nextStepDelay()); err != nil {
		return fmt.Errorf("failed to schedule next warmup step: %w", err)
	}

	return nil
}

// performActions runs the phase action set. The first permanent failure
// turns the account terminal; transient failures abort the step and let the
// queue retry the whole unit of work.
func (w *WarmupWorker) performActions(ctx context.Context, account *model.Account, phase model.WarmupStatus, now time.Time) ([]model.ActionRecord, int, error) {
	var records []model.ActionRecord
	karma := 0

	for _, step := range planForPhase(phase) {
		for i := 0; i < step.count; i++ {
			result, err := w.reddit.PerformAction(ctx, account, step.action)
			if err != nil {
				if reddit.IsPermanent(err) {
					if failErr := w.markFailed(ctx, account.ID); failErr != nil {
						logger.ErrorCtx(ctx, "failed to mark account %s failed: %v", account.ID, failErr)
					}
					return nil, 0, fmt.Errorf("permanent reddit failure for %s: %v: %w",
						account.ID, err, asynq.SkipRetry)
				}
				return nil, 0, fmt.Errorf("reddit action %s failed for %s: %w",
					step.action, account.ID, err)
			}
			if result.NewKarma > karma {
				karma = result.NewKarma
			}
		}
		records = append(records, model.ActionRecord{
			Type:      step.action,
			Count:     step.count,
			Timestamp: now,
		})
	}

	return records, karma, nil
}

func (w *WarmupWorker) complete(ctx context.Context, account *model.Account, now time.Time) error {
	err := w.store.UpdateFields(ctx, account.ID, map[string]interface{}{
		"warmup_status":       string(model.WarmupCompleted),
		"warmup_completed_at": now,
	})
	if err != nil {
		return fmt.Errorf("failed to complete warmup for %s: %w", account.ID, err)
	}
	logger.InfoCtx(ctx, "warmup completed, account_id: %s", account.ID)
	return nil
}

func (w *WarmupWorker) markFailed(ctx context.Context, accountID string) error {
	return w.store.UpdateFields(ctx, accountID, map[string]interface{}{
		"warmup_status":      string(model.WarmupFailed),
		"warmup_fail_reason": string(model.FailReasonPermanentError),
	})
}

// planForPhase maps a phase to its action set. Counts are small and
// randomized so the activity pattern does not look scripted.
func planForPhase(phase model.WarmupStatus) []actionStep {
	switch phase {
	case model.WarmupPhase1:
		return []actionStep{
			{action: model.ActionUpvote, count: 1 + rand.Intn(3)},
		}
	case model.WarmupPhase2:
		return []actionStep{
			{action: model.ActionUpvote, count: 1 + rand.Intn(2)},
			{action: model.ActionComment, count: 1 + rand.Intn(2)},
		}
	case model.WarmupPhase3:
		return []actionStep{
			{action: model.ActionComment, count: 1 + rand.Intn(2)},
			{action: model.ActionPost, count: 1},
		}
	case model.WarmupPhase4:
		return []actionStep{
			{action: model.ActionUpvote, count: 1 + rand.Intn(3)},
			{action: model.ActionComment, count: 1 + rand.Intn(2)},
			{action: model.ActionPost, count: 1},
		}
	default:
		return nil
	}
}

// nextStepDelay randomized interval until the next step of the same account
func (w *WarmupWorker) nextStepDelay() time.Duration {
	minHours, maxHours := 4, 8
	if config.GlobalConfig != nil {
		minHours = config.GlobalConfig.Warmup.StepIntervalMin
		maxHours = config.GlobalConfig.Warmup.StepIntervalMax
	}
	spread := maxHours - minHours
	if spread <= 0 {
		spread = 1
	}
	return time.Duration(minHours)*time.Hour + time.Duration(rand.Intn(spread*60))*time.Minute
}
