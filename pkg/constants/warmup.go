package constants

import "time"

// Warmup schedule boundaries (days since warmup start)
const (
	Phase1EndDay    = 7  // days 0-7: upvotes only
	Phase2EndDay    = 14 // days 8-14: comments
	Phase3EndDay    = 21 // days 15-21: posts
	WarmupTotalDays = 30 // days 22-30: mixed activity, then completion
)

// Health monitor thresholds
const (
	StuckAccountDays        = 35   // non-terminal warmup older than this signals an orchestration bug
	QueueFailureRateLimit   = 0.30 // strictly greater than this degrades the queue check
	AccountFailureRateLimit = 0.20 // strictly greater than this degrades the account check
	LowKarmaThreshold       = 20   // cumulative karma below this after LowKarmaMinDays raises a warning
	LowKarmaMinDays         = 14

	StuckJobThreshold = 30 * time.Minute // active job older than this counts as stuck
)

// Alert windows
const (
	AlertDedupWindow     = 5 * time.Minute
	AlertRetentionWindow = time.Hour
)
