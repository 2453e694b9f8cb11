package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron"

	"github.com/custodia-labs/countersign/internal/core/ports/driven"
)

const janitorLockName = "janitor"

// Janitor periodically purges finished notification tasks from the queue.
// It runs on worker nodes. With a DistributedLock configured only one
// replica purges per cycle.
type Janitor struct {
	taskQueue driven.TaskQueue
	lock      driven.DistributedLock
	logger    *slog.Logger

	schedule  string
	retention time.Duration
	lockTTL   time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// JanitorConfig holds configuration for the janitor.
type JanitorConfig struct {
	TaskQueue driven.TaskQueue
	Lock      driven.DistributedLock // Optional: distributed lock for multi-instance coordination
	Logger    *slog.Logger
	Schedule  string        // Cron spec (default: "@every 1h")
	Retention time.Duration // Age after which finished tasks are purged (default: 7 days)
	LockTTL   time.Duration // TTL for the distributed lock (default: 5m)
}

// NewJanitor creates a new janitor.
func NewJanitor(cfg JanitorConfig) *Janitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	schedule := cfg.Schedule
	if schedule == "" {
		schedule = "@every 1h"
	}

	retention := cfg.Retention
	if retention == 0 {
		retention = 7 * 24 * time.Hour
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 5 * time.Minute
	}

	return &Janitor{
		taskQueue: cfg.TaskQueue,
		lock:      cfg.Lock,
		logger:    logger,
		schedule:  schedule,
		retention: retention,
		lockTTL:   lockTTL,
	}
}

// Start registers the purge job with cron and starts it.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return nil
	}

	c := cron.New()
	if err := c.AddFunc(j.schedule, func() { j.RunOnce(ctx) }); err != nil {
		return err
	}
	c.Start()

	j.cron = c
	j.running = true
	j.logger.Info("janitor starting", "schedule", j.schedule, "retention", j.retention)
	return nil
}

// Stop stops the cron scheduler. A purge already in progress finishes on its own.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running {
		return
	}
	j.cron.Stop()
	j.running = false
	j.logger.Info("janitor stopped")
}

// RunOnce purges finished tasks older than the retention period.
// It returns the number of tasks removed.
func (j *Janitor) RunOnce(ctx context.Context) int {
	if j.lock != nil {
		acquired, err := j.lock.Acquire(ctx, janitorLockName, j.lockTTL)
		if err != nil {
			j.logger.Warn("failed to acquire janitor lock", "error", err)
			return 0
		}
		if !acquired {
			j.logger.Debug("janitor lock held by another instance, skipping cycle")
			return 0
		}
		defer func() {
			if err := j.lock.Release(ctx, janitorLockName); err != nil {
				j.logger.Warn("failed to release janitor lock", "error", err)
			}
		}()
	}

	purged, err := j.taskQueue.PurgeTasks(ctx, int(j.retention.Seconds()))
	if err != nil {
		j.logger.Error("failed to purge tasks", "error", err)
		return 0
	}
	if purged > 0 {
		j.logger.Info("purged finished tasks", "count", purged)
	}
	return purged
}
