package driven

import (
	"context"

	"github.com/custodia-labs/countersign/internal/core/domain"
)

// DocumentSource loads base document bytes from where the owner uploaded them
type DocumentSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DocumentRenderer reads page geometry from a PDF and draws text onto it.
// Implementations must not modify the input bytes.
type DocumentRenderer interface {
	// PageSizes returns the size of every page, in page order
	PageSizes(doc []byte) ([]domain.PageSize, error)

	// Render returns a new document with every stamp drawn onto its page
	Render(doc []byte, stamps []domain.TextStamp) ([]byte, error)
}
