package ports

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/eudiconnect/credential-platform/internal/core/domain"
)

// IssueCredentialRequest carries the data needed to issue a credential with a
// revocation slot
type IssueCredentialRequest struct {
	MerchantID       uuid.UUID
	CredentialID     uuid.UUID
	IssuerDID        string
	CredentialTypeID string
	Payload          json.RawMessage
}

// IssuedCredential is the result of an issuance: the signed credential plus
// its permanent status list coordinates
type IssuedCredential struct {
	SignedCredential json.RawMessage
	StatusListID     uuid.UUID
	BitIndex         int64
}

// RevocationService is the public entry point of the revocation subsystem
type RevocationService interface {
	// IssueCredential assigns a status list slot and hands the payload to the signer
	IssueCredential(ctx context.Context, req IssueCredentialRequest) (*IssuedCredential, error)
	// RevokeNow revokes an issued credential immediately. Notification is a
	// fire and forget side effect, its outcome never fails the revocation.
	RevokeNow(ctx context.Context, credentialID uuid.UUID, reason string) (*domain.RevocationEvent, error)
	// RevokeBatch revokes each credential independently and reports per item
	// outcomes. Each revoked member gets its own event flagged as part of a
	// batch, plus one consolidated batch event.
	RevokeBatch(ctx context.Context, merchantID uuid.UUID, credentialIDs []uuid.UUID, reason string) (*domain.BatchRevocationSummary, error)
	// CheckStatus returns the revocation state of a status list slot
	CheckStatus(ctx context.Context, statusListID uuid.UUID, bitIndex int64) (bool, error)
}
