package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eudiconnect/credential-platform/internal/core/domain"
	"github.com/eudiconnect/credential-platform/internal/core/event"
	"github.com/eudiconnect/credential-platform/internal/core/ports"
	"github.com/eudiconnect/credential-platform/internal/log"
	"github.com/eudiconnect/credential-platform/internal/pubsub"
)

type notification struct {
	webhooks      ports.WebhookRepository
	deliverer     ports.WebhookDeliverer
	maxConcurrent int
}

// NewNotification returns a Notification Service
func NewNotification(webhooks ports.WebhookRepository, deliverer ports.WebhookDeliverer, maxConcurrent int) ports.NotificationService {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &notification{
		webhooks:      webhooks,
		deliverer:     deliverer,
		maxConcurrent: maxConcurrent,
	}
}

// webhookPayload is the canonical wire format sent to merchant webhooks
type webhookPayload struct {
	Event      string         `json:"event"`
	Timestamp  string         `json:"timestamp"`
	MerchantID string         `json:"merchant_id"`
	Data       map[string]any `json:"data"`
}

func (n *notification) SendRevokedNotification(ctx context.Context, msg pubsub.Message) error {
	var ev event.CredentialRevoked
	if err := ev.Unmarshal(msg); err != nil {
		return errors.New("sendRevokedNotification unexpected data type")
	}

	merchantID, err := uuid.Parse(ev.MerchantID)
	if err != nil {
		log.Error(ctx, "sendRevokedNotification: failed to parse merchantID", "err", err, "merchantID", ev.MerchantID)
		return err
	}
	credentialID, err := uuid.Parse(ev.CredentialID)
	if err != nil {
		log.Error(ctx, "sendRevokedNotification: failed to parse credentialID", "err", err, "credentialID", ev.CredentialID)
		return err
	}
	statusListID, err := uuid.Parse(ev.StatusListID)
	if err != nil {
		log.Error(ctx, "sendRevokedNotification: failed to parse statusListID", "err", err, "statusListID", ev.StatusListID)
		return err
	}

	n.NotifyRevocation(ctx, domain.RevocationEvent{
		MerchantID:   merchantID,
		CredentialID: credentialID,
		StatusListID: statusListID,
		BitIndex:     ev.RevocationIndex,
		Reason:       ev.Reason,
		RevokedAt:    ev.RevokedAt,
		IsBatch:      ev.IsBatch,
	})
	return nil
}

func (n *notification) SendBatchRevokedNotification(ctx context.Context, msg pubsub.Message) error {
	var ev event.CredentialsBatchRevoked
	if err := ev.Unmarshal(msg); err != nil {
		return errors.New("sendBatchRevokedNotification unexpected data type")
	}

	merchantID, err := uuid.Parse(ev.MerchantID)
	if err != nil {
		log.Error(ctx, "sendBatchRevokedNotification: failed to parse merchantID", "err", err, "merchantID", ev.MerchantID)
		return err
	}

	credentialIDs := make([]uuid.UUID, 0, len(ev.CredentialIDs))
	for _, raw := range ev.CredentialIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			log.Error(ctx, "sendBatchRevokedNotification: failed to parse credentialID", "err", err, "credentialID", raw)
			return err
		}
		credentialIDs = append(credentialIDs, id)
	}

	n.NotifyBatchRevocation(ctx, merchantID, credentialIDs, domain.BatchRevocationSummary{
		Total:     ev.Total,
		Succeeded: ev.Succeeded,
		Failed:    ev.Failed,
	})
	return nil
}

func (n *notification) NotifyRevocation(ctx context.Context, ev domain.RevocationEvent) *domain.DeliveryReport {
	webhooks, err := n.webhooks.GetActiveByMerchantAndEventType(ctx, ev.MerchantID, domain.EventCredentialRevoked)
	if err != nil {
		log.Error(ctx, "notifyRevocation: load webhooks", "err", err, "merchantID", ev.MerchantID)
		return &domain.DeliveryReport{}
	}
	if len(webhooks) == 0 {
		log.Debug(ctx, "notifyRevocation: no webhooks configured", "merchantID", ev.MerchantID)
		return &domain.DeliveryReport{}
	}

	payload, err := json.Marshal(webhookPayload{
		Event:      domain.EventCredentialRevoked,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		MerchantID: ev.MerchantID.String(),
		Data: map[string]any{
			"credential_id":      ev.CredentialID.String(),
			"status_list_id":     ev.StatusListID.String(),
			"revocation_index":   ev.BitIndex,
			"reason":             ev.Reason,
			"revoked_at":         ev.RevokedAt.UTC().Format(time.RFC3339),
			"is_batch_operation": ev.IsBatch,
		},
	})
	if err != nil {
		log.Error(ctx, "notifyRevocation: marshal payload", "err", err)
		return &domain.DeliveryReport{}
	}

	report := n.fanOut(ctx, webhooks, payload)
	log.Info(ctx, "sent revocation notification", "credentialID", ev.CredentialID,
		"sent", report.SentCount, "total", report.TotalCount)
	return report
}

func (n *notification) NotifyBatchRevocation(ctx context.Context, merchantID uuid.UUID, credentialIDs []uuid.UUID, summary domain.BatchRevocationSummary) *domain.DeliveryReport {
	webhooks, err := n.webhooks.GetActiveByMerchantAndEventType(ctx, merchantID, domain.EventCredentialBatchRevoked)
	if err != nil {
		log.Error(ctx, "notifyBatchRevocation: load webhooks", "err", err, "merchantID", merchantID)
		return &domain.DeliveryReport{}
	}
	if len(webhooks) == 0 {
		log.Debug(ctx, "notifyBatchRevocation: no webhooks configured", "merchantID", merchantID)
		return &domain.DeliveryReport{}
	}

	ids := make([]string, len(credentialIDs))
	for i, id := range credentialIDs {
		ids[i] = id.String()
	}
	payload, err := json.Marshal(webhookPayload{
		Event:      domain.EventCredentialBatchRevoked,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		MerchantID: merchantID.String(),
		Data: map[string]any{
			"summary":        summary,
			"credential_ids": ids,
			"batch_id":       uuid.NewString(),
		},
	})
	if err != nil {
		log.Error(ctx, "notifyBatchRevocation: marshal payload", "err", err)
		return &domain.DeliveryReport{}
	}

	report := n.fanOut(ctx, webhooks, payload)
	log.Info(ctx, "sent batch revocation notification", "credentials", len(credentialIDs),
		"sent", report.SentCount, "total", report.TotalCount)
	return report
}

// fanOut delivers the payload to every webhook in parallel with bounded
// concurrency. No webhook's failure blocks another's attempt, there is no
// ordering guarantee between webhooks.
func (n *notification) fanOut(ctx context.Context, webhooks []*domain.Webhook, payload []byte) *domain.DeliveryReport {
	results := make([]domain.WebhookDeliveryResult, len(webhooks))

	g := new(errgroup.Group)
	g.SetLimit(n.maxConcurrent)
	for i, wh := range webhooks {
		i, wh := i, wh
		g.Go(func() error {
			results[i] = domain.WebhookDeliveryResult{
				WebhookID: wh.ID,
				URL:       wh.URL,
				Success:   n.deliverer.Deliver(ctx, wh.URL, payload),
			}
			return nil
		})
	}
	_ = g.Wait()

	report := &domain.DeliveryReport{
		TotalCount: len(results),
		Results:    results,
	}
	for _, res := range results {
		if res.Success {
			report.SentCount++
		}
	}
	return report
}
