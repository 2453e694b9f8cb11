package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven/mocks"
)

func TestNewJanitor_Defaults(t *testing.T) {
	j := NewJanitor(JanitorConfig{TaskQueue: mocks.NewMockTaskQueue()})

	if j.schedule != "@every 1h" {
		t.Errorf("expected default schedule, got %s", j.schedule)
	}
	if j.retention != 7*24*time.Hour {
		t.Errorf("expected 7 day retention, got %v", j.retention)
	}
	if j.lockTTL != 5*time.Minute {
		t.Errorf("expected 5m lock TTL, got %v", j.lockTTL)
	}
	if j.logger == nil {
		t.Error("expected default logger")
	}
}

func finishedQueue(t *testing.T) *mocks.MockTaskQueue {
	t.Helper()
	ctx := context.Background()
	queue := mocks.NewMockTaskQueue()
	_ = queue.Enqueue(ctx, domain.NewNotifyCompletedTask("inst-1"))
	_ = queue.Enqueue(ctx, domain.NewNotifyRecipientTask("inst-1", "r1"))
	task, _ := queue.DequeueWithTimeout(ctx, 1)
	_ = queue.Ack(ctx, task.ID)
	return queue
}

func TestJanitor_RunOnce(t *testing.T) {
	queue := finishedQueue(t)
	lock := mocks.NewMockDistributedLock()
	j := NewJanitor(JanitorConfig{TaskQueue: queue, Lock: lock})

	if got := j.RunOnce(context.Background()); got != 1 {
		t.Errorf("expected 1 purged task, got %d", got)
	}
	if lock.AcquireCount(janitorLockName) != 1 {
		t.Error("expected janitor lock to be taken")
	}
	if lock.IsHeld(janitorLockName) {
		t.Error("expected janitor lock to be released")
	}
}

func TestJanitor_RunOnce_LockHeldElsewhere(t *testing.T) {
	queue := finishedQueue(t)
	lock := mocks.NewMockDistributedLock()
	lock.SetLockHeld(janitorLockName, time.Minute)
	j := NewJanitor(JanitorConfig{TaskQueue: queue, Lock: lock})

	if got := j.RunOnce(context.Background()); got != 0 {
		t.Errorf("expected no purge while lock is held, got %d", got)
	}
	if len(queue.Tasks()) != 2 {
		t.Errorf("expected tasks untouched, got %d", len(queue.Tasks()))
	}
}

func TestJanitor_RunOnce_LockError(t *testing.T) {
	lock := mocks.NewMockDistributedLock()
	lock.AcquireFn = func(name string, ttl time.Duration) (bool, error) {
		return false, errors.New("redis down")
	}
	j := NewJanitor(JanitorConfig{TaskQueue: finishedQueue(t), Lock: lock})

	if got := j.RunOnce(context.Background()); got != 0 {
		t.Errorf("expected no purge on lock error, got %d", got)
	}
}

func TestJanitor_StartStop(t *testing.T) {
	j := NewJanitor(JanitorConfig{TaskQueue: mocks.NewMockTaskQueue(), Schedule: "@every 1h"})

	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	// Starting twice is a no-op
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	j.Stop()
	j.Stop()

	if j.running {
		t.Error("expected janitor to be stopped")
	}
}

func TestJanitor_Start_BadSchedule(t *testing.T) {
	j := NewJanitor(JanitorConfig{TaskQueue: mocks.NewMockTaskQueue(), Schedule: "not a schedule"})

	if err := j.Start(context.Background()); err == nil {
		t.Error("expected error for invalid cron spec")
	}
}
