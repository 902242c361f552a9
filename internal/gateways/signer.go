package gateways

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/eudiconnect/credential-platform/internal/core/ports"
	"github.com/eudiconnect/credential-platform/pkg/http"
)

// SignerClient talks to the external credential signing service. Signing and
// verification never happen in process.
type SignerClient struct {
	conn *http.Client
	url  string
}

// NewSignerClient creates a signer gateway against baseURL
func NewSignerClient(conn *http.Client, baseURL string) *SignerClient {
	return &SignerClient{
		conn: conn,
		url:  baseURL,
	}
}

// Ping reports whether the signer answers its status endpoint, so the
// gateway can sit behind the health checker
func (c *SignerClient) Ping(ctx context.Context) error {
	_, err := c.conn.Get(ctx, c.url+"/status")
	return errors.WithStack(err)
}

// Sign sends the credential payload to the signer and returns the signed credential
func (c *SignerClient) Sign(ctx context.Context, credential json.RawMessage) (json.RawMessage, error) {
	resp, err := c.conn.Post(ctx, c.url+"/v1/credentials/sign", credential)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return resp, nil
}

// Verify asks the signer for a verification verdict on a signed credential
func (c *SignerClient) Verify(ctx context.Context, signedCredential json.RawMessage) (*ports.VerificationResult, error) {
	resp, err := c.conn.Post(ctx, c.url+"/v1/credentials/verify", signedCredential)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	result := &ports.VerificationResult{}
	if err := json.Unmarshal(resp, result); err != nil {
		return nil, errors.WithStack(err)
	}
	return result, nil
}
