package domain

import (
	"time"

	"github.com/google/uuid"
)

// CredentialAssignment maps an issued credential to its permanent slot in a
// status list. Written once at issuance, never updated.
type CredentialAssignment struct {
	ID           uuid.UUID
	CredentialID uuid.UUID
	MerchantID   uuid.UUID
	StatusListID uuid.UUID
	BitIndex     int64
	CreatedAt    time.Time
}

// RevocationEvent carries the data of a committed revocation towards the
// notification pipeline. It is ephemeral, never persisted on its own.
type RevocationEvent struct {
	MerchantID   uuid.UUID
	CredentialID uuid.UUID
	StatusListID uuid.UUID
	BitIndex     int64
	Reason       string
	RevokedAt    time.Time
	IsBatch      bool
}

// BatchRevocationError is the per credential failure detail of a batch revocation
type BatchRevocationError struct {
	CredentialID uuid.UUID `json:"credential_id"`
	Message      string    `json:"message"`
}

// BatchRevocationSummary aggregates the outcome of a batch revocation. One
// credential failing never prevents the others from being revoked.
type BatchRevocationSummary struct {
	Total     int                    `json:"total"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
	Errors    []BatchRevocationError `json:"errors,omitempty"`
}
