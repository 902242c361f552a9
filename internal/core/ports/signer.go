package ports

import (
	"context"
	"encoding/json"
)

// VerificationResult is the verdict of the external signer on a signed credential
type VerificationResult struct {
	Verified bool     `json:"verified"`
	Errors   []string `json:"errors,omitempty"`
}

// Signer is the external signing collaborator. The platform never signs or
// verifies credentials itself.
type Signer interface {
	Sign(ctx context.Context, credential json.RawMessage) (json.RawMessage, error)
	Verify(ctx context.Context, signedCredential json.RawMessage) (*VerificationResult, error)
}
