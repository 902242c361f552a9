package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/eudiconnect/credential-platform/internal/core/domain"
	"github.com/eudiconnect/credential-platform/internal/pubsub"
)

// WebhookDeliverer performs one at-least-once delivery attempt chain against
// a single webhook url. It reports success and never propagates failures.
type WebhookDeliverer interface {
	Deliver(ctx context.Context, url string, payload []byte) bool
}

// NotificationService delivers revocation events to merchant webhooks
type NotificationService interface {
	// NotifyRevocation fans a credential.revoked payload out to every active
	// subscribed webhook of the merchant, in parallel, and aggregates the
	// outcomes. Best effort: failures are reported, never raised.
	NotifyRevocation(ctx context.Context, ev domain.RevocationEvent) *domain.DeliveryReport
	// NotifyBatchRevocation sends one consolidated credential.batch_revoked payload
	NotifyBatchRevocation(ctx context.Context, merchantID uuid.UUID, credentialIDs []uuid.UUID, summary domain.BatchRevocationSummary) *domain.DeliveryReport
	// SendRevokedNotification is the pubsub subscriber entry point for single revocations
	SendRevokedNotification(ctx context.Context, msg pubsub.Message) error
	// SendBatchRevokedNotification is the pubsub subscriber entry point for batch revocations
	SendBatchRevokedNotification(ctx context.Context, msg pubsub.Message) error
}
