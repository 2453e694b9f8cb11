package driven

import (
	"context"

	"github.com/custodia-labs/countersign/internal/core/domain"
)

// InstanceStore persists instances, their recipients and fields, and the
// per-recipient signing progress (PostgreSQL).
type InstanceStore interface {
	// Create inserts a new instance with its recipients and fields
	Create(ctx context.Context, instance *domain.Instance) error

	// Get retrieves an instance with recipients and fields loaded
	Get(ctx context.Context, id string) (*domain.Instance, error)

	// ListByOwner lists an owner's instances, filtered by the deleted flag
	ListByOwner(ctx context.Context, ownerID string, deleted bool) ([]*domain.Instance, error)

	// ListByRecipientEmail lists sent instances that include the email as a recipient
	ListByRecipientEmail(ctx context.Context, email string) ([]*domain.Instance, error)

	// ReplaceFields replaces all fields of a draft instance.
	// Returns ErrAlreadySent if the instance is no longer a draft.
	ReplaceFields(ctx context.Context, instanceID string, fields []*domain.Field) error

	// SetFavorite sets the favorite flag
	SetFavorite(ctx context.Context, instanceID string, favorite bool) error

	// SetDeleted sets the soft-delete flag
	SetDeleted(ctx context.Context, instanceID string, deleted bool) error

	// Purge permanently removes an instance and everything attached to it
	Purge(ctx context.Context, instanceID string) error

	// MarkSent stores the signing mode, moves the instance from draft to sent
	// and creates the progress records, all in one transaction.
	// Returns ErrAlreadySent if the instance is not a draft.
	MarkSent(ctx context.Context, instanceID string, mode domain.SigningMode, progress []*domain.SigningProgress) error

	// ListProgress returns the progress records of an instance ordered by rank
	ListProgress(ctx context.Context, instanceID string) ([]*domain.SigningProgress, error)

	// UpdateFieldValues writes submitted values in one transaction.
	// Fields not present in values are left untouched.
	UpdateFieldValues(ctx context.Context, instanceID string, values map[string]string) error

	// MarkSigned moves a recipient's progress from pending to signed.
	// Returns ErrAlreadySigned if it is already signed, ErrNotFound if no record exists.
	MarkSigned(ctx context.Context, instanceID, recipientID string) error

	// MarkCompleted moves the instance from sent to completed.
	// Returns ErrAlreadyCompleted if another writer got there first.
	MarkCompleted(ctx context.Context, instanceID string) error
}
