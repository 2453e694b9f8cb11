package driven

import (
	"context"

	"github.com/custodia-labs/countersign/internal/core/domain"
)

// Notifier delivers outbound email
type Notifier interface {
	// Send hands the message to the mail transport.
	// Failures wrap domain.ErrNotificationDelivery.
	Send(ctx context.Context, msg *domain.Message) error
}
