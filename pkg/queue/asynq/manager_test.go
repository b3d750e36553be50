package asynq

import (
	"context"
	"testing"
	"time"

	"redwarm/internal/model"
	"redwarm/pkg/config"
	"redwarm/pkg/interfaces"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	mr := miniredis.RunT(t)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	cfg.Queue.Concurrency = 1
	cfg.Queue.MaxRetry = 3
	cfg.Queue.TaskTimeout = 60

	prev := config.GlobalConfig
	config.GlobalConfig = cfg
	t.Cleanup(func() { config.GlobalConfig = prev })

	m, err := NewManager(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	return m
}

func TestTaskIDRoundTrip(t *testing.T) {
	id := newTaskID("acc-123")
	assert.Equal(t, "acc-123", accountIDFromTaskID(id))

	// Account ids containing the separator still round-trip
	id = newTaskID("acc:with:colons")
	assert.Equal(t, "acc:with:colons", accountIDFromTaskID(id))
}

func TestTaskIDsAreUnique(t *testing.T) {
	a := newTaskID("acc-1")
	b := newTaskID("acc-1")
	assert.NotEqual(t, a, b, "each step gets a fresh task id")
}

func TestEnqueueAndFindJob(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	payload := &model.WarmupJobPayload{
		AccountID:   "acc-1",
		TargetPhase: model.WarmupPhase1,
		EnqueuedAt:  time.Now(),
	}
	require.NoError(t, m.Enqueue(ctx, payload, time.Hour))

	job, err := m.FindJob(ctx, "acc-1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "acc-1", job.AccountID)
	assert.Equal(t, interfaces.JobStateScheduled, job.State)

	// Unknown account has no job
	job, err = m.FindJob(ctx, "acc-unknown")
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestRemoveJob(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	payload := &model.WarmupJobPayload{
		AccountID:   "acc-1",
		TargetPhase: model.WarmupPhase1,
		EnqueuedAt:  time.Now(),
	}
	require.NoError(t, m.Enqueue(ctx, payload, time.Hour))

	require.NoError(t, m.RemoveJob(ctx, "acc-1"))

	job, err := m.FindJob(ctx, "acc-1")
	require.NoError(t, err)
	assert.Nil(t, job, "removed job must not be findable")

	// Removing again is not an error
	assert.NoError(t, m.RemoveJob(ctx, "acc-1"))
}

func TestEnqueueReplacesIndexEntry(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	first := &model.WarmupJobPayload{AccountID: "acc-1", TargetPhase: model.WarmupPhase1, EnqueuedAt: time.Now()}
	require.NoError(t, m.Enqueue(ctx, first, time.Hour))
	require.NoError(t, m.RemoveJob(ctx, "acc-1"))

	second := &model.WarmupJobPayload{AccountID: "acc-1", TargetPhase: model.WarmupPhase2, EnqueuedAt: time.Now()}
	require.NoError(t, m.Enqueue(ctx, second, time.Hour))

	job, err := m.FindJob(ctx, "acc-1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, interfaces.JobStateScheduled, job.State)
}

func TestGetJobCounts_EmptyQueue(t *testing.T) {
	m := newTestManager(t)

	counts, err := m.GetJobCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Active)
	assert.Equal(t, 0, counts.Failed)
}

func TestGetJobCounts_ScheduledJobsCountAsWaiting(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for _, id := range []string{"acc-1", "acc-2"} {
		payload := &model.WarmupJobPayload{AccountID: id, TargetPhase: model.WarmupPhase1, EnqueuedAt: time.Now()}
		require.NoError(t, m.Enqueue(ctx, payload, time.Hour))
	}

	counts, err := m.GetJobCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Waiting)
	assert.Equal(t, 2, counts.Delayed)
}

func TestPing(t *testing.T) {
	m := newTestManager(t)
	assert.NoError(t, m.Ping(context.Background()))
}
