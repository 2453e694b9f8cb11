package driving

import (
	"context"

	"github.com/custodia-labs/countersign/internal/core/domain"
)

// ComposerService overlays submitted values onto base documents
type ComposerService interface {
	// Compose draws the values of fields onto base. It is a pure function of
	// its inputs.
	Compose(ctx context.Context, base []byte, fields []*domain.Field) ([]byte, error)

	// ComposeInstance renders every value whose owner has signed
	ComposeInstance(ctx context.Context, instance *domain.Instance, progress []*domain.SigningProgress) ([]byte, error)

	// ComposeForRecipient renders only the given recipient's values
	ComposeForRecipient(ctx context.Context, instance *domain.Instance, recipientID string) ([]byte, error)
}
