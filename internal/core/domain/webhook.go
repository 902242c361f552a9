package domain

import (
	"time"

	"github.com/google/uuid"
)

// Webhook event types merchants can subscribe to
const (
	EventCredentialRevoked      = "credential.revoked"
	EventCredentialBatchRevoked = "credential.batch_revoked"
)

// Webhook is a merchant owned notification endpoint. The revocation core only
// reads webhooks, management lives with the merchant component.
type Webhook struct {
	ID         uuid.UUID
	MerchantID uuid.UUID
	URL        string
	EventTypes []string
	Active     bool
	CreatedAt  time.Time
}

// WebhookDeliveryResult is the outcome of delivering one payload to one webhook
type WebhookDeliveryResult struct {
	WebhookID uuid.UUID `json:"webhook_id"`
	URL       string    `json:"url"`
	Success   bool      `json:"success"`
}

// DeliveryReport aggregates the per webhook outcomes of one notification
// fan out. Delivery is best effort: SentCount < TotalCount is not an error.
type DeliveryReport struct {
	SentCount  int                     `json:"sent_count"`
	TotalCount int                     `json:"total_count"`
	Results    []WebhookDeliveryResult `json:"results"`
}
