package gateways

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/eudiconnect/credential-platform/internal/config"
	"github.com/eudiconnect/credential-platform/internal/core/ports"
	"github.com/eudiconnect/credential-platform/internal/log"
)

const webhookUserAgent = "eudi-connect/1.0"

// WebhookClient delivers notification payloads to merchant webhooks with
// exponential backoff between attempts. The backoff sleeps happen inside the
// http client, no database lock is ever held during a delivery chain.
type WebhookClient struct {
	client *retryablehttp.Client
}

// NewWebhookClient creates a webhook delivery client from the configured
// retry policy
func NewWebhookClient(cfg config.Webhook) ports.WebhookDeliverer {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	client.RetryWaitMin = cfg.RetryWaitMin
	client.RetryWaitMax = cfg.RetryWaitMax
	client.HTTPClient.Timeout = cfg.RequestTimeout
	client.Logger = nil
	// any network error or non 2xx response counts as a failed attempt
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return true, nil
		}
		return false, nil
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &WebhookClient{client: client}
}

// Deliver posts the payload to url. It returns true only on a 2xx response
// and false once the retry budget is exhausted, never an error: a dead
// webhook must not disturb the callers.
func (c *WebhookClient) Deliver(ctx context.Context, url string, payload []byte) bool {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		log.Error(ctx, "building webhook request", "err", err, "url", url)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn(ctx, "webhook delivery failed", "err", err, "url", url)
		return false
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		log.Warn(ctx, "webhook delivery rejected", "status", resp.StatusCode, "url", url)
		return false
	}

	log.Debug(ctx, "webhook delivered", "status", resp.StatusCode, "url", url)
	return true
}
