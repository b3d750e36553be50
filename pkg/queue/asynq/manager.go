package asynq

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"redwarm/internal/model"
	"redwarm/pkg/config"
	"redwarm/pkg/interfaces"
	"redwarm/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// TypeWarmupStep is the task type for one scheduled warmup step
	TypeWarmupStep = "warmup:step"

	queueName      = "default"
	taskIDPrefix   = "warmup:"
	jobIndexKey    = "warmup:job_index"   // hash account_id -> task_id
	activeSinceKey = "warmup:active_since" // hash task_id -> unix start time
)

// Manager wraps the asynq client, server and inspector behind the
// interfaces.JobQueue contract. The broker itself keys jobs by opaque task
// ids; the account-to-job index kept in Redis is what lets callers look up
// and withdraw the single outstanding job for an account.
type Manager struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	inspector *asynq.Inspector
	redis     *redis.Client
}

// NewManager creates queue manager
func NewManager(cfg *config.Config) (*Manager, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	client := asynq.NewClient(redisOpt)
	inspector := asynq.NewInspector(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Queue.Concurrency,
			Queues: map[string]int{
				queueName: 10,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				// Linear backoff, warmup pacing tolerates slow retries
				return time.Duration(n) * time.Minute
			},
		},
	)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	mux := asynq.NewServeMux()

	m := &Manager{
		client:    client,
		server:    server,
		mux:       mux,
		inspector: inspector,
		redis:     redisClient,
	}

	// Track when each job goes active so the health monitor can spot
	// workers that never finish a step.
	mux.Use(m.trackActiveMiddleware)

	return m, nil
}

func newTaskID(accountID string) string {
	return taskIDPrefix + accountID + ":" + uuid.NewString()[:8]
}

func accountIDFromTaskID(taskID string) string {
	trimmed := strings.TrimPrefix(taskID, taskIDPrefix)
	if i := strings.LastIndex(trimmed, ":"); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

// Enqueue schedules one warmup step for the account after the delay and
// records the task id in the account-to-job index. Callers must withdraw
// any outstanding job first; the index only tracks the latest task.
func (m *Manager) Enqueue(ctx context.Context, payload *model.WarmupJobPayload, delay time.Duration) error {
	data, err := payload.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal warmup payload: %w", err)
	}

	task := asynq.NewTask(TypeWarmupStep, data)
	taskID := newTaskID(payload.AccountID)

	opts := []asynq.Option{
		asynq.TaskID(taskID),
		asynq.ProcessIn(delay),
		asynq.Queue(queueName),
		asynq.MaxRetry(config.GlobalConfig.Queue.MaxRetry),
		asynq.Timeout(time.Duration(config.GlobalConfig.Queue.TaskTimeout) * time.Second),
	}

	info, err := m.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue warmup step: %w", err)
	}

	if err := m.redis.HSet(ctx, jobIndexKey, payload.AccountID, taskID).Err(); err != nil {
		return fmt.Errorf("failed to index warmup job: %w", err)
	}

	logger.InfoCtx(ctx, "warmup step enqueued, account_id: %s, phase: %s, run_at: %s",
		payload.AccountID, payload.TargetPhase, info.NextProcessAt.Format(time.RFC3339))

	return nil
}

// FindJob locates the outstanding job for an account, nil when none
func (m *Manager) FindJob(ctx context.Context, accountID string) (*interfaces.JobInfo, error) {
	taskID, err := m.redis.HGet(ctx, jobIndexKey, accountID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job index: %w", err)
	}

	info, err := m.inspector.GetTaskInfo(queueName, taskID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			// Stale index entry from a finished job
			m.redis.HDel(ctx, jobIndexKey, accountID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find job: %w", err)
	}

	if info.State == asynq.TaskStateCompleted || info.State == asynq.TaskStateArchived {
		return nil, nil
	}

	return m.toJobInfo(ctx, info), nil
}

// RemoveJob withdraws the outstanding job for an account.
// A missing job is not an error. A job that is already executing cannot be
// deleted; the worker re-checks account state before recording progress, so
// the withdraw still takes effect.
func (m *Manager) RemoveJob(ctx context.Context, accountID string) error {
	taskID, err := m.redis.HGet(ctx, jobIndexKey, accountID).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read job index: %w", err)
	}

	if err := m.inspector.DeleteTask(queueName, taskID); err != nil {
		if !errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
			logger.WarnCtx(ctx, "could not delete queued job %s: %v", taskID, err)
		}
	}

	if err := m.redis.HDel(ctx, jobIndexKey, accountID).Err(); err != nil {
		return fmt.Errorf("failed to clear job index: %w", err)
	}

	logger.InfoCtx(ctx, "warmup job removed, account_id: %s", accountID)
	return nil
}

// GetJobCounts retrieves aggregate queue counters
func (m *Manager) GetJobCounts(ctx context.Context) (*interfaces.JobCounts, error) {
	qi, err := m.inspector.GetQueueInfo(queueName)
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return &interfaces.JobCounts{}, nil
		}
		return nil, fmt.Errorf("failed to get queue info: %w", err)
	}

	completed := qi.Processed - qi.Failed
	if completed < 0 {
		completed = 0
	}

	return &interfaces.JobCounts{
		Waiting:   qi.Pending + qi.Scheduled + qi.Retry,
		Active:    qi.Active,
		Completed: completed,
		Failed:    qi.Failed,
		Delayed:   qi.Scheduled,
	}, nil
}

// GetActiveJobs lists currently-executing jobs
func (m *Manager) GetActiveJobs(ctx context.Context, limit int) ([]*interfaces.JobInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	infos, err := m.inspector.ListActiveTasks(queueName, asynq.PageSize(limit))
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list active jobs: %w", err)
	}

	jobs := make([]*interfaces.JobInfo, 0, len(infos))
	for _, info := range infos {
		jobs = append(jobs, m.toJobInfo(ctx, info))
	}
	return jobs, nil
}

// Ping broker liveness probe
func (m *Manager) Ping(ctx context.Context) error {
	return m.redis.Ping(ctx).Err()
}

// RegisterHandler registers task handler
func (m *Manager) RegisterHandler(pattern string, handler asynq.Handler) {
	m.mux.Handle(pattern, handler)
}

// Start starts queue processor
func (m *Manager) Start() error {
	logger.InfoCtx(context.Background(), "starting queue server")
	return m.server.Start(m.mux)
}

// Stop stops queue processor
func (m *Manager) Stop() {
	logger.InfoCtx(context.Background(), "stopping queue server")
	m.server.Stop()
	m.server.Shutdown()
}

// Close closes client connections
func (m *Manager) Close() error {
	if err := m.client.Close(); err != nil {
		return err
	}
	return m.redis.Close()
}

func (m *Manager) toJobInfo(ctx context.Context, info *asynq.TaskInfo) *interfaces.JobInfo {
	job := &interfaces.JobInfo{
		ID:        info.ID,
		AccountID: accountIDFromTaskID(info.ID),
		State:     mapState(info.State),
		Retried:   info.Retried,
		LastErr:   info.LastErr,
		NextRunAt: info.NextProcessAt,
	}

	if info.State == asynq.TaskStateActive {
		if since := m.activeSince(ctx, info.ID); since != nil {
			job.ProcessedAt = since
		}
	}

	return job
}

// trackActiveMiddleware records the moment each job goes active and clears
// it once the handler returns. The health monitor reads these timestamps to
// classify long-running jobs as stuck.
func (m *Manager) trackActiveMiddleware(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		taskID, ok := asynq.GetTaskID(ctx)
		if ok {
			m.redis.HSet(ctx, activeSinceKey, taskID, time.Now().Unix())
			defer m.redis.HDel(context.Background(), activeSinceKey, taskID)
		}
		return next.ProcessTask(ctx, task)
	})
}

func (m *Manager) activeSince(ctx context.Context, taskID string) *time.Time {
	val, err := m.redis.HGet(ctx, activeSinceKey, taskID).Result()
	if err != nil {
		return nil
	}
	sec, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil
	}
	t := time.Unix(sec, 0)
	return &t
}

func mapState(state asynq.TaskState) interfaces.JobState {
	switch state {
	case asynq.TaskStateActive:
		return interfaces.JobStateActive
	case asynq.TaskStatePending:
		return interfaces.JobStatePending
	case asynq.TaskStateScheduled:
		return interfaces.JobStateScheduled
	case asynq.TaskStateRetry:
		return interfaces.JobStateRetry
	case asynq.TaskStateCompleted:
		return interfaces.JobStateCompleted
	case asynq.TaskStateArchived:
		return interfaces.JobStateArchived
	default:
		return interfaces.JobStatePending
	}
}
