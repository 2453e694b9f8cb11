package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven"
	"github.com/custodia-labs/countersign/internal/core/ports/driving"
)

// Ensure instanceService implements InstanceService
var _ driving.InstanceService = (*instanceService)(nil)

// instanceService implements the InstanceService interface
type instanceService struct {
	store     driven.InstanceStore
	taskQueue driven.TaskQueue
	composer  *Composer
	order     *SigningOrder
	logger    *slog.Logger

	observersMustSign bool
}

// InstanceServiceConfig holds configuration for the instance service.
type InstanceServiceConfig struct {
	Store     driven.InstanceStore
	TaskQueue driven.TaskQueue // Optional: without it no notifications are sent
	Composer  *Composer
	Logger    *slog.Logger

	// ObserversMustSign makes recipients without fields submit before the
	// workflow can complete. When false they start out signed.
	ObserversMustSign bool
}

// NewInstanceService creates a new InstanceService
func NewInstanceService(cfg InstanceServiceConfig) driving.InstanceService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &instanceService{
		store:             cfg.Store,
		taskQueue:         cfg.TaskQueue,
		composer:          cfg.Composer,
		order:             NewSigningOrder(cfg.Store),
		logger:            logger,
		observersMustSign: cfg.ObserversMustSign,
	}
}

// Create validates and stores a new draft instance
func (s *instanceService) Create(ctx context.Context, ownerID string, req domain.CreateInstanceRequest) (*domain.Instance, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.DocumentURL) == "" {
		return nil, fmt.Errorf("%w: document_url is required", domain.ErrInvalidInput)
	}

	now := time.Now()
	instance := &domain.Instance{
		ID:           domain.GenerateID(),
		OwnerID:      ownerID,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		DocumentURL:  req.DocumentURL,
		EmailSubject: req.EmailSubject,
		EmailMessage: req.EmailMessage,
		Status:       domain.InstanceStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for _, r := range req.Recipients {
		c := r.Clone()
		if c.ID == "" {
			c.ID = domain.GenerateID()
		}
		c.InstanceID = instance.ID
		c.Email = normalizeEmail(c.Email)
		instance.Recipients = append(instance.Recipients, c)
	}
	instance.Fields = draftFields(instance.ID, req.Fields)

	if err := ValidateConfiguration(instance.Recipients, instance.Fields); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, instance); err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	s.logger.Info("instance created",
		"instance_id", instance.ID,
		"owner_id", ownerID,
		"recipients", len(instance.Recipients),
		"fields", len(instance.Fields),
	)
	return instance, nil
}

// Get retrieves an instance owned by ownerID
func (s *instanceService) Get(ctx context.Context, ownerID, id string) (*domain.Instance, error) {
	instance, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !instance.IsOwnedBy(ownerID) {
		return nil, domain.ErrForbidden
	}
	return instance, nil
}

// List returns the owner's live instances
func (s *instanceService) List(ctx context.Context, ownerID string) ([]*domain.Instance, error) {
	return s.store.ListByOwner(ctx, ownerID, false)
}

// ListDeleted returns the owner's soft-deleted instances
func (s *instanceService) ListDeleted(ctx context.Context, ownerID string) ([]*domain.Instance, error) {
	return s.store.ListByOwner(ctx, ownerID, true)
}

// ListSent returns the owner's sent instances with signing status
func (s *instanceService) ListSent(ctx context.Context, ownerID string) ([]*domain.InstanceSummary, error) {
	instances, err := s.store.ListByOwner(ctx, ownerID, false)
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, instances)
}

// Inbox returns sent instances in which email is a recipient
func (s *instanceService) Inbox(ctx context.Context, email string) ([]*domain.InstanceSummary, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	instances, err := s.store.ListByRecipientEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, instances)
}

func (s *instanceService) summaries(ctx context.Context, instances []*domain.Instance) ([]*domain.InstanceSummary, error) {
	result := make([]*domain.InstanceSummary, 0, len(instances))
	for _, instance := range instances {
		if !instance.IsSent() {
			continue
		}
		progress, err := s.store.ListProgress(ctx, instance.ID)
		if err != nil {
			return nil, fmt.Errorf("list progress for %s: %w", instance.ID, err)
		}
		result = append(result, instance.ToSummary(progress))
	}
	return result, nil
}

// UpdateFields replaces the fields of a draft instance
func (s *instanceService) UpdateFields(ctx context.Context, ownerID, id string, req domain.UpdateFieldsRequest) (*domain.Instance, error) {
	instance, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if instance.IsSent() {
		return nil, domain.ErrAlreadySent
	}

	fields := draftFields(instance.ID, req.Fields)
	if err := ValidateConfiguration(instance.Recipients, fields); err != nil {
		return nil, err
	}

	if err := s.store.ReplaceFields(ctx, instance.ID, fields); err != nil {
		return nil, fmt.Errorf("replace fields: %w", err)
	}
	return s.store.Get(ctx, instance.ID)
}

// Delete soft-deletes an instance
func (s *instanceService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return s.store.SetDeleted(ctx, id, true)
}

// Restore undoes a soft delete
func (s *instanceService) Restore(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return s.store.SetDeleted(ctx, id, false)
}

// Purge permanently deletes a soft-deleted instance
func (s *instanceService) Purge(ctx context.Context, ownerID, id string) error {
	instance, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !instance.Deleted {
		return fmt.Errorf("%w: instance must be deleted before it is purged", domain.ErrInvalidInput)
	}
	if err := s.store.Purge(ctx, id); err != nil {
		return err
	}
	s.logger.Info("instance purged", "instance_id", id, "owner_id", ownerID)
	return nil
}

// ToggleFavorite flips the favorite flag
func (s *instanceService) ToggleFavorite(ctx context.Context, ownerID, id string) (bool, error) {
	instance, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return false, err
	}
	favorite := !instance.Favorite
	if err := s.store.SetFavorite(ctx, id, favorite); err != nil {
		return false, err
	}
	return favorite, nil
}

// Send freezes the recipients and fields, derives the signing mode and
// notifies whoever may act first.
func (s *instanceService) Send(ctx context.Context, ownerID, id string) (*domain.Instance, error) {
	instance, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if instance.Deleted {
		return nil, domain.ErrNotFound
	}
	if instance.IsSent() {
		return nil, domain.ErrAlreadySent
	}

	if err := ValidateConfiguration(instance.Recipients, instance.Fields); err != nil {
		return nil, err
	}
	if len(instance.Fields) == 0 {
		return nil, fmt.Errorf("%w: instance has no fields", domain.ErrConfiguration)
	}
	mode, err := DeriveMode(instance.Recipients)
	if err != nil {
		return nil, err
	}

	if s.composer != nil {
		pages, err := s.composer.PageSizes(ctx, instance)
		if err != nil {
			return nil, err
		}
		if err := CheckPages(pages, instance.Fields); err != nil {
			return nil, err
		}
	}

	instance.Mode = mode
	progress := InitialProgress(instance, s.observersMustSign)
	if err := s.store.MarkSent(ctx, instance.ID, mode, progress); err != nil {
		return nil, fmt.Errorf("mark sent: %w", err)
	}

	sent, err := s.store.Get(ctx, instance.ID)
	if err != nil {
		return nil, err
	}

	state := ResolveState(mode, progress)
	first := PendingActors(ActorsFor(sent, state), progress)
	s.logger.Info("instance sent",
		"instance_id", sent.ID,
		"mode", mode,
		"first_actors", len(first),
	)

	if s.taskQueue != nil && len(first) > 0 {
		tasks := make([]*domain.Task, 0, len(first))
		for _, r := range first {
			tasks = append(tasks, domain.NewNotifyRecipientTask(sent.ID, r.ID))
		}
		if err := s.taskQueue.EnqueueBatch(ctx, tasks); err != nil {
			s.logger.Error("failed to queue notifications",
				"instance_id", sent.ID,
				"error", fmt.Errorf("%w: %w", domain.ErrNotificationDelivery, err),
			)
		}
	}

	return sent, nil
}

// Download composes the instance for its owner
func (s *instanceService) Download(ctx context.Context, ownerID, id string, preview bool) ([]byte, error) {
	instance, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !instance.IsCompleted() && !preview {
		return nil, domain.ErrNotComplete
	}
	if s.composer == nil {
		return nil, fmt.Errorf("no composer configured")
	}

	var progress []*domain.SigningProgress
	if instance.IsSent() {
		progress, err = s.store.ListProgress(ctx, instance.ID)
		if err != nil {
			return nil, fmt.Errorf("list progress: %w", err)
		}
	}
	return s.composer.ComposeInstance(ctx, instance, progress)
}

// ValidateConfiguration checks recipients and fields against each other.
// Every field must be owned by a known recipient, recipient and field IDs
// must be unique and ranks must be all-or-nothing and contiguous.
func ValidateConfiguration(recipients []*domain.Recipient, fields []*domain.Field) error {
	if len(recipients) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", domain.ErrConfiguration)
	}

	recipientIDs := mapset.NewThreadUnsafeSet[string]()
	for _, r := range recipients {
		if err := r.Validate(); err != nil {
			return err
		}
		if !recipientIDs.Add(r.ID) {
			return fmt.Errorf("%w: duplicate recipient id %s", domain.ErrConfiguration, r.ID)
		}
	}

	if _, err := DeriveMode(recipients); err != nil {
		return err
	}

	fieldIDs := mapset.NewThreadUnsafeSet[string]()
	for _, f := range fields {
		if err := f.Validate(); err != nil {
			return err
		}
		if !fieldIDs.Add(f.ID) {
			return fmt.Errorf("%w: duplicate field id %s", domain.ErrConfiguration, f.ID)
		}
		if !recipientIDs.Contains(f.RecipientID) {
			return fmt.Errorf("%w: field %s is assigned to unknown recipient %s",
				domain.ErrConfiguration, f.ID, f.RecipientID)
		}
	}
	return nil
}

// draftFields copies fields onto an instance with their values cleared.
// Owners place fields; only recipients fill them.
func draftFields(instanceID string, fields []*domain.Field) []*domain.Field {
	result := make([]*domain.Field, 0, len(fields))
	for _, f := range fields {
		c := f.Clone()
		c.InstanceID = instanceID
		c.Value = ""
		result = append(result, c)
	}
	return result
}
