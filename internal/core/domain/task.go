package domain

import (
	"time"

	"github.com/google/uuid"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	return uuid.NewString()
}

// TaskType identifies the type of background task
type TaskType string

const (
	// TaskTypeNotifyRecipient emails a recipient their signing link
	TaskTypeNotifyRecipient TaskType = "notify_recipient"
	// TaskTypeNotifyCompleted emails the owner the fully composed document
	TaskTypeNotifyCompleted TaskType = "notify_completed"
	// TaskTypeSendCopy emails a recipient a copy containing only their own values
	TaskTypeSendCopy TaskType = "send_copy"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a background job to be processed by workers
type Task struct {
	// ID is the unique identifier for this task
	ID string `json:"id"`

	// Type identifies what kind of task this is
	Type TaskType `json:"type"`

	// InstanceID is the instance this task belongs to
	InstanceID string `json:"instance_id"`

	// Payload contains task-specific data
	// For notify_recipient and send_copy: {"recipient_id": "..."}
	// For notify_completed: {} (empty)
	Payload map[string]string `json:"payload"`

	// Status is the current state of the task
	Status TaskStatus `json:"status"`

	// Priority determines processing order (higher = more urgent)
	Priority int `json:"priority"`

	// Attempts is how many times this task has been attempted
	Attempts int `json:"attempts"`

	// MaxAttempts is the maximum retry count before giving up
	MaxAttempts int `json:"max_attempts"`

	// Error contains the last error message if failed
	Error string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ScheduledFor is when the task should be processed (for delayed tasks)
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTask creates a new task with default values
func NewTask(taskType TaskType, instanceID string, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		InstanceID:   instanceID,
		Payload:      payload,
		Status:       TaskStatusPending,
		MaxAttempts:  5,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewNotifyRecipientTask creates a task to send a recipient their signing link
func NewNotifyRecipientTask(instanceID, recipientID string) *Task {
	return NewTask(TaskTypeNotifyRecipient, instanceID, map[string]string{
		"recipient_id": recipientID,
	})
}

// NewNotifyCompletedTask creates a task to send the owner the final document
func NewNotifyCompletedTask(instanceID string) *Task {
	return NewTask(TaskTypeNotifyCompleted, instanceID, nil)
}

// NewSendCopyTask creates a task to send a recipient their partial copy
func NewSendCopyTask(instanceID, recipientID string) *Task {
	return NewTask(TaskTypeSendCopy, instanceID, map[string]string{
		"recipient_id": recipientID,
	})
}

// RecipientID extracts the recipient_id from the payload
func (t *Task) RecipientID() string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload["recipient_id"]
}

// CanRetry returns true if the task can be retried
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// IsReady returns true if the task is ready to be processed
func (t *Task) IsReady() bool {
	return t.Status == TaskStatusPending && !time.Now().Before(t.ScheduledFor)
}

// MarkProcessing updates the task to processing state
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	t.UpdatedAt = now
	t.Attempts++
}

// MarkCompleted updates the task to completed state
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.Error = ""
}

// MarkFailed updates the task to failed state
func (t *Task) MarkFailed(err string) {
	t.Status = TaskStatusFailed
	t.UpdatedAt = time.Now()
	t.Error = err
}

// Retry resets the task for retry with exponential backoff
func (t *Task) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err

	// 1s, 2s, 4s, 8s, ... capped at 5 minutes
	backoff := time.Duration(1<<t.Attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	t.ScheduledFor = now.Add(backoff)
}

// TaskResult represents the outcome of processing a task
type TaskResult struct {
	TaskID   string        `json:"task_id"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}
