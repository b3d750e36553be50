package interfaces

import (
	"context"
	"time"

	"redwarm/internal/model"
)

// AccountStore persistence contract for warmup accounts
// Implemented by the MySQL repository; faked in service tests.
type AccountStore interface {
	// FindByID retrieves an account, nil when not found
	FindByID(ctx context.Context, accountID string) (*model.Account, error)

	// UpdateFields updates specific columns of an account
	UpdateFields(ctx context.Context, accountID string, updates map[string]interface{}) error

	// TransitionStatus atomically moves warmup_status from an expected
	// value to a new one and applies the extra column updates with it.
	// Fails when the current status no longer matches fromStatus, so two
	// concurrent transitions cannot both win.
	TransitionStatus(ctx context.Context, accountID, fromStatus, toStatus string, updates map[string]interface{}) error

	// ListWarmupAccounts retrieves all accounts flagged as warmup-managed
	ListWarmupAccounts(ctx context.Context) ([]*model.Account, error)

	// CountStuckAccounts counts accounts sitting in a non-terminal
	// warmup status (PAUSED included) since before the cutoff
	CountStuckAccounts(ctx context.Context, startedBefore time.Time) (int64, error)

	// AverageCompletionDays average warmup duration among completed accounts
	AverageCompletionDays(ctx context.Context) (float64, error)

	// Ping database liveness probe
	Ping(ctx context.Context) error
}
