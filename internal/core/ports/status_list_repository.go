package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/eudiconnect/credential-platform/internal/core/domain"
)

// StatusListRepository is the persistence boundary of the bitstring
// revocation ledgers. Implementations must serialize index allocation and bit
// setting per status list so no index is handed out twice and no compressed
// bitstring update is lost.
type StatusListRepository interface {
	// GetOrCreate returns the status list of the pair, creating an empty one
	// on first use. Safe under concurrent first use.
	GetOrCreate(ctx context.Context, issuerDID, credentialTypeID string) (*domain.StatusList, error)
	// GetByID loads a status list with its decoded bitstring
	GetByID(ctx context.Context, id uuid.UUID) (*domain.StatusList, error)
	// AssignIndex allocates the next free bit index of the pair's list for
	// credentialID and persists the advanced cursor atomically with the
	// assignment row
	AssignIndex(ctx context.Context, issuerDID, credentialTypeID string, merchantID, credentialID uuid.UUID) (*domain.CredentialAssignment, error)
	// Revoke sets the bit and persists the re-encoded bitstring and revoked
	// count atomically. Idempotent on an already set bit.
	Revoke(ctx context.Context, statusListID uuid.UUID, bitIndex int64) error
	// IsRevoked is the lock free read path
	IsRevoked(ctx context.Context, statusListID uuid.UUID, bitIndex int64) (bool, error)
	// GetAssignment returns the slot assigned to a credential
	GetAssignment(ctx context.Context, credentialID uuid.UUID) (*domain.CredentialAssignment, error)
}
