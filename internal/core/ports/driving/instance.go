package driving

import (
	"context"

	"github.com/custodia-labs/countersign/internal/core/domain"
)

// InstanceService manages an owner's instances. Every method that takes an
// ownerID returns ErrForbidden when the instance belongs to someone else.
type InstanceService interface {
	// Create validates and stores a new draft instance
	Create(ctx context.Context, ownerID string, req domain.CreateInstanceRequest) (*domain.Instance, error)

	// Get retrieves an instance owned by ownerID
	Get(ctx context.Context, ownerID, id string) (*domain.Instance, error)

	// List returns the owner's live (not deleted) instances
	List(ctx context.Context, ownerID string) ([]*domain.Instance, error)

	// ListDeleted returns the owner's soft-deleted instances
	ListDeleted(ctx context.Context, ownerID string) ([]*domain.Instance, error)

	// ListSent returns the owner's sent instances with signing status
	ListSent(ctx context.Context, ownerID string) ([]*domain.InstanceSummary, error)

	// Inbox returns sent instances in which email is a recipient
	Inbox(ctx context.Context, email string) ([]*domain.InstanceSummary, error)

	// UpdateFields replaces the fields of a draft instance
	UpdateFields(ctx context.Context, ownerID, id string, req domain.UpdateFieldsRequest) (*domain.Instance, error)

	// Delete soft-deletes an instance
	Delete(ctx context.Context, ownerID, id string) error

	// Restore undoes a soft delete
	Restore(ctx context.Context, ownerID, id string) error

	// Purge permanently deletes a soft-deleted instance
	Purge(ctx context.Context, ownerID, id string) error

	// ToggleFavorite flips the favorite flag and returns the new value
	ToggleFavorite(ctx context.Context, ownerID, id string) (bool, error)

	// Send derives the signing mode, creates progress records and notifies
	// the first actors
	Send(ctx context.Context, ownerID, id string) (*domain.Instance, error)

	// Download composes the instance. Unless preview is set, it fails with
	// ErrNotComplete until every recipient has signed.
	Download(ctx context.Context, ownerID, id string, preview bool) ([]byte, error)
}
