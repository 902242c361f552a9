package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/eudiconnect/credential-platform/internal/core/domain"
)

// WebhookRepository reads merchant webhook registrations. Webhook management
// belongs to the merchant component, the revocation core only consumes them.
type WebhookRepository interface {
	Save(ctx context.Context, wh *domain.Webhook) (uuid.UUID, error)
	GetActiveByMerchantAndEventType(ctx context.Context, merchantID uuid.UUID, eventType string) ([]*domain.Webhook, error)
}
