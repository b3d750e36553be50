package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertSet_Dedup(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newAlertSet()

	assert.True(t, s.raise(SeverityError, "queue down", "", now))
	assert.False(t, s.raise(SeverityError, "queue down", "", now.Add(time.Minute)),
		"identical alert inside the window is suppressed")
	assert.False(t, s.raise(SeverityError, "queue down", "", now.Add(4*time.Minute)))

	// Past the 5-minute window it fires again
	assert.True(t, s.raise(SeverityError, "queue down", "", now.Add(6*time.Minute)))

	assert.Len(t, s.snapshot(), 2)
}

func TestAlertSet_DedupKeyIncludesAccount(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newAlertSet()

	assert.True(t, s.raise(SeverityWarning, "low karma", "acc-1", now))
	assert.True(t, s.raise(SeverityWarning, "low karma", "acc-2", now),
		"same message for a different account is a distinct alert")
	assert.False(t, s.raise(SeverityWarning, "low karma", "acc-1", now.Add(time.Minute)))
}

func TestAlertSet_Retention(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newAlertSet()

	s.raise(SeverityError, "old alert", "", now)
	s.raise(SeverityError, "recent alert", "", now.Add(59*time.Minute))

	s.purge(now.Add(61 * time.Minute))

	alerts := s.snapshot()
	require.Len(t, alerts, 1)
	assert.Equal(t, "recent alert", alerts[0].Message)
}
