package driving

import (
	"context"

	"github.com/custodia-labs/countersign/internal/core/domain"
)

// SigningService is the recipient-facing side of an instance
type SigningService interface {
	// View returns the fields the recipient owns and whether they may act now
	View(ctx context.Context, instanceID, recipientID string) (*domain.RecipientView, error)

	// Submit records the recipient's values and advances the signing order
	Submit(ctx context.Context, instanceID string, req domain.SubmissionRequest) (*domain.SubmissionResult, error)
}
