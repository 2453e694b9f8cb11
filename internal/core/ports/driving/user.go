package driving

import (
	"context"

	"github.com/custodia-labs/countersign/internal/core/domain"
)

// UserService manages owner accounts
type UserService interface {
	// Register creates a new owner account
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)

	// Get retrieves a user by ID
	Get(ctx context.Context, id string) (*domain.User, error)
}
