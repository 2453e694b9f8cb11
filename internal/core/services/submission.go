package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven"
	"github.com/custodia-labs/countersign/internal/core/ports/driving"
)

// Ensure SubmissionProcessor implements SigningService
var _ driving.SigningService = (*SubmissionProcessor)(nil)

// SubmissionProcessor is the only code path that writes recipient values and
// moves the signing order forward.
type SubmissionProcessor struct {
	store     driven.InstanceStore
	lock      driven.DistributedLock
	taskQueue driven.TaskQueue
	order     *SigningOrder
	resolver  FieldResolver
	logger    *slog.Logger

	lockTTL  time.Duration
	lockWait time.Duration
}

// SubmissionConfig holds configuration for the submission processor.
type SubmissionConfig struct {
	Store     driven.InstanceStore
	Lock      driven.DistributedLock
	TaskQueue driven.TaskQueue // Optional: without it no notifications are sent
	Logger    *slog.Logger
	LockTTL   time.Duration // TTL of the per-instance lock (default: 30s)
	LockWait  time.Duration // How long to wait for a busy instance (default: 5s)
}

// NewSubmissionProcessor creates a new SubmissionProcessor.
func NewSubmissionProcessor(cfg SubmissionConfig) *SubmissionProcessor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 30 * time.Second
	}

	lockWait := cfg.LockWait
	if lockWait == 0 {
		lockWait = 5 * time.Second
	}

	return &SubmissionProcessor{
		store:     cfg.Store,
		lock:      cfg.Lock,
		taskQueue: cfg.TaskQueue,
		order:     NewSigningOrder(cfg.Store),
		logger:    logger,
		lockTTL:   lockTTL,
		lockWait:  lockWait,
	}
}

// View returns what a recipient sees when opening their signing link
func (p *SubmissionProcessor) View(ctx context.Context, instanceID, recipientID string) (*domain.RecipientView, error) {
	instance, err := p.store.Get(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.Deleted {
		return nil, domain.ErrNotFound
	}

	fields, err := p.resolver.FieldsFor(instance, recipientID)
	if err != nil {
		return nil, err
	}

	state, progress, err := p.order.State(ctx, instance)
	if err != nil {
		return nil, err
	}

	signed := isSigned(progress, recipientID)
	return &domain.RecipientView{
		InstanceID:    instance.ID,
		Name:          instance.Name,
		DocumentURL:   instance.DocumentURL,
		Status:        instance.Status,
		Recipient:     instance.Recipient(recipientID),
		Fields:        fields,
		State:         state,
		CanAct:        !signed && containsRecipient(ActorsFor(instance, state), recipientID),
		AlreadySigned: signed,
	}, nil
}

// Submit records a recipient's field values.
//
// All checks run under the per-instance lock against freshly loaded state,
// so two concurrent submissions can never both pass the turn check. Nothing
// is written unless every check passes. Notifications are queued after the
// lock is released and their failure never fails the submission.
func (p *SubmissionProcessor) Submit(ctx context.Context, instanceID string, req domain.SubmissionRequest) (*domain.SubmissionResult, error) {
	release, err := p.acquire(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	result, tasks, err := p.submitLocked(ctx, instanceID, req)
	release()
	if err != nil {
		return nil, err
	}

	p.enqueue(ctx, instanceID, tasks)
	return result, nil
}

func (p *SubmissionProcessor) submitLocked(ctx context.Context, instanceID string, req domain.SubmissionRequest) (*domain.SubmissionResult, []*domain.Task, error) {
	instance, err := p.store.Get(ctx, instanceID)
	if err != nil {
		return nil, nil, err
	}
	if instance.Deleted {
		return nil, nil, domain.ErrNotFound
	}
	switch instance.Status {
	case domain.InstanceStatusDraft:
		return nil, nil, domain.ErrNotSent
	case domain.InstanceStatusCompleted:
		return nil, nil, domain.ErrAlreadyCompleted
	}

	recipientID := req.RecipientID
	owned, err := p.resolver.FieldsFor(instance, recipientID)
	if err != nil {
		return nil, nil, err
	}

	values := req.Values()
	if err := checkOwnership(owned, values); err != nil {
		return nil, nil, err
	}
	if err := checkMandatory(owned, values); err != nil {
		return nil, nil, err
	}

	state, progress, err := p.order.State(ctx, instance)
	if err != nil {
		return nil, nil, err
	}
	if !isSigned(progress, recipientID) && !containsRecipient(ActorsFor(instance, state), recipientID) {
		return nil, nil, fmt.Errorf("recipient %s, active rank %d: %w", recipientID, state.ActiveRank, domain.ErrOutOfTurn)
	}

	if len(values) > 0 {
		if err := p.store.UpdateFieldValues(ctx, instance.ID, values); err != nil {
			return nil, nil, fmt.Errorf("save field values: %w", err)
		}
	}

	advance, err := p.order.Advance(ctx, instance, recipientID)
	if err != nil && !errors.Is(err, domain.ErrAlreadySigned) {
		return nil, nil, err
	}

	result := &domain.SubmissionResult{
		InstanceID:    instance.ID,
		State:         advance.State,
		Complete:      advance.Complete,
		AlreadySigned: advance.AlreadySigned,
		NextActors:    advance.NextActors,
	}

	var tasks []*domain.Task
	if advance.AlreadySigned {
		p.logger.Info("recipient resubmitted", "instance_id", instance.ID, "recipient_id", recipientID)
		result.NextActors = advance.PendingActors
		tasks = p.renotify(instance, recipientID, advance)
	} else {
		p.logger.Info("recipient signed",
			"instance_id", instance.ID,
			"recipient_id", recipientID,
			"phase", advance.State.Phase,
			"active_rank", advance.State.ActiveRank,
		)
		for _, next := range advance.NextActors {
			tasks = append(tasks, domain.NewNotifyRecipientTask(instance.ID, next.ID))
		}
	}

	// The instance was loaded as sent, so a complete state here means the
	// completion has not been recorded yet. This also repairs a previous
	// submission that signed the last record but failed to mark completion.
	if advance.Complete {
		completed, err := p.complete(ctx, instance)
		if err != nil {
			return nil, nil, err
		}
		if completed {
			tasks = append(tasks, completionTasks(instance)...)
		}
	}

	return result, tasks, nil
}

// complete marks the instance completed. It reports false when another
// writer got there first.
func (p *SubmissionProcessor) complete(ctx context.Context, instance *domain.Instance) (bool, error) {
	err := p.store.MarkCompleted(ctx, instance.ID)
	switch {
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("mark instance completed: %w", err)
	}
	p.logger.Info("instance completed", "instance_id", instance.ID)
	return true, nil
}

// renotify re-queues the notification for the active sequential recipient
// when the resubmitter is the one whose signature enabled them. A first
// submission can sign and then fail before its notification is queued.
func (p *SubmissionProcessor) renotify(instance *domain.Instance, recipientID string, advance *AdvanceResult) []*domain.Task {
	if advance.State.Phase != domain.PhaseSequentialPending {
		return nil
	}
	r := instance.Recipient(recipientID)
	if r == nil || r.RankValue() >= advance.State.ActiveRank {
		return nil
	}
	// Recipients ranked in between must be observers that never gate
	for _, other := range instance.Recipients {
		rank := other.RankValue()
		if rank > r.RankValue() && rank < advance.State.ActiveRank && instance.OwnsFields(other.ID) {
			return nil
		}
	}
	tasks := make([]*domain.Task, 0, len(advance.PendingActors))
	for _, next := range advance.PendingActors {
		tasks = append(tasks, domain.NewNotifyRecipientTask(instance.ID, next.ID))
	}
	return tasks
}

// completionTasks notifies the owner and, when there is more than one
// recipient, sends each field-owning recipient a copy of their own values.
func completionTasks(instance *domain.Instance) []*domain.Task {
	tasks := []*domain.Task{domain.NewNotifyCompletedTask(instance.ID)}
	if len(instance.Recipients) < 2 {
		return tasks
	}
	for _, r := range instance.Recipients {
		if instance.OwnsFields(r.ID) {
			tasks = append(tasks, domain.NewSendCopyTask(instance.ID, r.ID))
		}
	}
	return tasks
}

// acquire takes the per-instance lock, retrying with backoff until lockWait
// elapses. The returned func releases it.
func (p *SubmissionProcessor) acquire(ctx context.Context, instanceID string) (func(), error) {
	name := "instance:" + instanceID

	waitCtx, cancel := context.WithTimeout(ctx, p.lockWait)
	defer cancel()

	backoff := 10 * time.Millisecond
	for {
		acquired, err := p.lock.Acquire(waitCtx, name, p.lockTTL)
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("acquire instance lock: %w", err)
		}
		if acquired {
			return func() {
				if err := p.lock.Release(context.WithoutCancel(ctx), name); err != nil {
					p.logger.Warn("failed to release instance lock", "instance_id", instanceID, "error", err)
				}
			}, nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("instance %s: %w", instanceID, domain.ErrBusy)
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

func (p *SubmissionProcessor) enqueue(ctx context.Context, instanceID string, tasks []*domain.Task) {
	if len(tasks) == 0 || p.taskQueue == nil {
		return
	}
	if err := p.taskQueue.EnqueueBatch(ctx, tasks); err != nil {
		p.logger.Error("failed to queue notifications",
			"instance_id", instanceID,
			"tasks", len(tasks),
			"error", fmt.Errorf("%w: %w", domain.ErrNotificationDelivery, err),
		)
	}
}

// checkOwnership rejects values for fields the recipient does not own
func checkOwnership(owned []*domain.Field, values map[string]string) error {
	ids := make(map[string]struct{}, len(owned))
	for _, f := range owned {
		ids[f.ID] = struct{}{}
	}
	for id := range values {
		if _, ok := ids[id]; !ok {
			return fmt.Errorf("%w: field %s is not assigned to this recipient", domain.ErrInvalidInput, id)
		}
	}
	return nil
}

// checkMandatory requires every mandatory field to carry a value, either
// from this submission or from an earlier one.
func checkMandatory(owned []*domain.Field, values map[string]string) error {
	for _, f := range owned {
		if !f.Type.IsMandatory() {
			continue
		}
		value := f.Value
		if v, ok := values[f.ID]; ok {
			value = v
		}
		if value == "" {
			return fmt.Errorf("field %s (%s): %w", f.ID, f.Type, domain.ErrMissingRequiredField)
		}
	}
	return nil
}

func isSigned(progress []*domain.SigningProgress, recipientID string) bool {
	for _, p := range progress {
		if p.RecipientID == recipientID {
			return p.IsSigned()
		}
	}
	return false
}

func containsRecipient(recipients []*domain.Recipient, id string) bool {
	for _, r := range recipients {
		if r.ID == id {
			return true
		}
	}
	return false
}
