package mysql

import (
	"context"
	"fmt"
	"time"

	appmodel "redwarm/internal/model"
	"redwarm/pkg/store/mysql/model"

	"gorm.io/gorm"
)

// AccountRepository handles warmup account persistence in MySQL
type AccountRepository struct {
	ds *Datastore
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(ds *Datastore) *AccountRepository {
	return &AccountRepository{ds: ds}
}

// FindByID retrieves an account by its external id, nil when not found
func (r *AccountRepository) FindByID(ctx context.Context, accountID string) (*appmodel.Account, error) {
	var row model.Account
	err := r.ds.DB(ctx).Where("account_id = ?", accountID).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return row.ToDomain(), nil
}

// UpdateFields updates specific columns of an account by account_id
func (r *AccountRepository) UpdateFields(ctx context.Context, accountID string, updates map[string]interface{}) error {
	// Progress arrives as the domain type; swap in the column type so gorm
	// serializes it through the JSON valuer.
	if p, ok := updates["warmup_progress"].(appmodel.WarmupProgress); ok {
		updates["warmup_progress"] = model.WarmupProgress(p)
	}
	result := r.ds.DB(ctx).Model(&model.Account{}).
		Where("account_id = ?", accountID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("account not found: account_id=%s", accountID)
	}
	return nil
}

// UpdateStatus updates warmup status with atomic state transition (CAS).
// Returns error if the account is missing or its status no longer matches
// fromStatus, which prevents two concurrent orchestrator calls from both
// winning the same transition.
func (r *AccountRepository) UpdateStatus(ctx context.Context, accountID string, fromStatus, toStatus string) error {
	result := r.ds.DB(ctx).Model(&model.Account{}).
		Where("account_id = ? AND warmup_status = ?", accountID, fromStatus).
		Update("warmup_status", toStatus)
	if result.Error != nil {
		return fmt.Errorf("failed to update warmup status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("account not found or invalid status transition: account_id=%s, from=%s, to=%s", accountID, fromStatus, toStatus)
	}
	return nil
}

// TransitionStatus performs the CAS status update and the remaining
// column updates inside one transaction, so a concurrent transition
// cannot interleave between the two writes.
func (r *AccountRepository) TransitionStatus(ctx context.Context, accountID, fromStatus, toStatus string, updates map[string]interface{}) error {
	return r.ds.ExecTx(ctx, func(ctx context.Context) error {
		if err := r.UpdateStatus(ctx, accountID, fromStatus, toStatus); err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return r.UpdateFields(ctx, accountID, updates)
	})
}

// ListWarmupAccounts retrieves all accounts flagged as warmup-managed
func (r *AccountRepository) ListWarmupAccounts(ctx context.Context) ([]*appmodel.Account, error) {
	var rows []model.Account
	err := r.ds.DB(ctx).
		Where("is_warmup_account = ?", true).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list warmup accounts: %w", err)
	}

	accounts := make([]*appmodel.Account, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, rows[i].ToDomain())
	}
	return accounts, nil
}

// CountStuckAccounts counts accounts sitting in a non-terminal warmup
// status whose warmup started before the cutoff. PAUSED counts too: a
// warmup paused for weeks is as abandoned as one the scheduler lost.
// Used by the health monitor to flag abandoned orchestration.
func (r *AccountRepository) CountStuckAccounts(ctx context.Context, startedBefore time.Time) (int64, error) {
	var count int64
	err := r.ds.DB(ctx).Model(&model.Account{}).
		Where("is_warmup_account = ?", true).
		Where("warmup_status IN ?", []string{
			string(appmodel.WarmupPhase1),
			string(appmodel.WarmupPhase2),
			string(appmodel.WarmupPhase3),
			string(appmodel.WarmupPhase4),
			string(appmodel.WarmupPaused),
		}).
		Where("warmup_started_at < ?", startedBefore).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count stuck accounts: %w", err)
	}
	return count, nil
}

// AverageCompletionDays computes the average warmup duration in days among
// completed accounts. Returns 0 when no account has completed yet.
func (r *AccountRepository) AverageCompletionDays(ctx context.Context) (float64, error) {
	var avg *float64
	err := r.ds.DB(ctx).Model(&model.Account{}).
		Where("warmup_status = ?", string(appmodel.WarmupCompleted)).
		Where("warmup_started_at IS NOT NULL AND warmup_completed_at IS NOT NULL").
		Select("AVG(TIMESTAMPDIFF(HOUR, warmup_started_at, warmup_completed_at) / 24.0)").
		Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute average completion days: %w", err)
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

// Ping database liveness probe
func (r *AccountRepository) Ping(ctx context.Context) error {
	return r.ds.Ping(ctx)
}
