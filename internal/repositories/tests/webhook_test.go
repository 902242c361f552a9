package tests

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eudiconnect/credential-platform/internal/core/domain"
	"github.com/eudiconnect/credential-platform/internal/repositories"
)

func TestWebhookSaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewWebhook(storage)
	merchantID := uuid.New()

	revokedOnly, err := repo.Save(ctx, &domain.Webhook{
		MerchantID: merchantID,
		URL:        "https://merchant.example.com/hooks/revoked",
		EventTypes: []string{domain.EventCredentialRevoked},
		Active:     true,
	})
	require.NoError(t, err)

	both, err := repo.Save(ctx, &domain.Webhook{
		MerchantID: merchantID,
		URL:        "https://merchant.example.com/hooks/all",
		EventTypes: []string{domain.EventCredentialRevoked, domain.EventCredentialBatchRevoked},
		Active:     true,
	})
	require.NoError(t, err)

	inactive, err := repo.Save(ctx, &domain.Webhook{
		MerchantID: merchantID,
		URL:        "https://merchant.example.com/hooks/disabled",
		EventTypes: []string{domain.EventCredentialRevoked},
		Active:     false,
	})
	require.NoError(t, err)

	webhooks, err := repo.GetActiveByMerchantAndEventType(ctx, merchantID, domain.EventCredentialRevoked)
	require.NoError(t, err)
	require.Len(t, webhooks, 2)
	ids := []uuid.UUID{webhooks[0].ID, webhooks[1].ID}
	assert.Contains(t, ids, revokedOnly)
	assert.Contains(t, ids, both)
	assert.NotContains(t, ids, inactive)

	webhooks, err = repo.GetActiveByMerchantAndEventType(ctx, merchantID, domain.EventCredentialBatchRevoked)
	require.NoError(t, err)
	require.Len(t, webhooks, 1)
	assert.Equal(t, both, webhooks[0].ID)
}

func TestWebhookGetActiveOtherMerchant(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewWebhook(storage)

	_, err := repo.Save(ctx, &domain.Webhook{
		MerchantID: uuid.New(),
		URL:        "https://merchant.example.com/hooks/mine",
		EventTypes: []string{domain.EventCredentialRevoked},
		Active:     true,
	})
	require.NoError(t, err)

	webhooks, err := repo.GetActiveByMerchantAndEventType(ctx, uuid.New(), domain.EventCredentialRevoked)
	require.NoError(t, err)
	assert.Empty(t, webhooks)
}
