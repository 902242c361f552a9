package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/eudiconnect/credential-platform/internal/core/domain"
	"github.com/eudiconnect/credential-platform/internal/core/ports"
	"github.com/eudiconnect/credential-platform/internal/db"
)

type webhook struct {
	conn *db.Storage
}

// NewWebhook returns a new webhook repository
func NewWebhook(conn *db.Storage) ports.WebhookRepository {
	return &webhook{conn: conn}
}

func (w *webhook) Save(ctx context.Context, wh *domain.Webhook) (uuid.UUID, error) {
	var id uuid.UUID
	err := w.conn.Pgx.QueryRow(ctx, `
INSERT INTO webhooks (merchant_id, url, event_types, active)
VALUES ($1, $2, $3, $4)
RETURNING id`,
		wh.MerchantID, wh.URL, wh.EventTypes, wh.Active).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (w *webhook) GetActiveByMerchantAndEventType(ctx context.Context, merchantID uuid.UUID, eventType string) ([]*domain.Webhook, error) {
	rows, err := w.conn.Pgx.Query(ctx, `
SELECT id, merchant_id, url, event_types, active, created_at
FROM webhooks
WHERE merchant_id = $1 AND active AND $2 = ANY (event_types)
ORDER BY created_at`,
		merchantID, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var webhooks []*domain.Webhook
	for rows.Next() {
		wh := &domain.Webhook{}
		if err := rows.Scan(&wh.ID, &wh.MerchantID, &wh.URL, &wh.EventTypes, &wh.Active, &wh.CreatedAt); err != nil {
			return nil, err
		}
		webhooks = append(webhooks, wh)
	}
	return webhooks, rows.Err()
}
