package health

import (
	"sync"
	"time"

	"redwarm/pkg/constants"

	"github.com/google/uuid"
)

// alertSet rolling in-memory alert window owned by one monitor instance.
// Alerts are deduplicated per (message, accountID) pair inside the dedup
// window and purged after the retention window. The set is not persisted,
// a fresh process starts empty.
type alertSet struct {
	mu     sync.Mutex
	alerts []Alert
}

func newAlertSet() *alertSet {
	return &alertSet{}
}

// raise appends an alert unless the identical (message, accountID) pair was
// already raised inside the dedup window. Returns true when appended.
func (s *alertSet) raise(severity AlertSeverity, message, accountID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.alerts) - 1; i >= 0; i-- {
		a := s.alerts[i]
		if a.Message == message && a.AccountID == accountID &&
			now.Sub(a.Timestamp) < constants.AlertDedupWindow {
			return false
		}
	}

	s.alerts = append(s.alerts, Alert{
		ID:        uuid.NewString(),
		Severity:  severity,
		Message:   message,
		AccountID: accountID,
		Timestamp: now,
	})
	return true
}

// purge drops alerts older than the retention window
func (s *alertSet) purge(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.alerts[:0]
	for _, a := range s.alerts {
		if now.Sub(a.Timestamp) <= constants.AlertRetentionWindow {
			kept = append(kept, a)
		}
	}
	s.alerts = kept
}

// snapshot returns a copy of the current alert list
func (s *alertSet) snapshot() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}
