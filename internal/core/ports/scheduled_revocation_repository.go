package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eudiconnect/credential-platform/internal/core/domain"
)

// ScheduledRevocationRepository persists deferred revocation orders
type ScheduledRevocationRepository interface {
	// Save upserts against the single pending row per credential: a second
	// schedule for the same credential replaces scheduled_for, reason and
	// metadata instead of creating a duplicate
	Save(ctx context.Context, sr *domain.ScheduledRevocation) (*domain.ScheduledRevocation, error)
	// GetByID returns a scheduled revocation by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledRevocation, error)
	// GetPendingByCredentialID returns the live schedule of a credential
	GetPendingByCredentialID(ctx context.Context, credentialID uuid.UUID) (*domain.ScheduledRevocation, error)
	// ClaimDue atomically flips up to limit due pending rows to executed,
	// stamping executedAt, and returns them. A row claimed here is invisible
	// to any concurrent claim.
	ClaimDue(ctx context.Context, now time.Time, executedAt time.Time, limit int) ([]*domain.ScheduledRevocation, error)
	// Release puts a claimed row back to pending so the next pass retries it
	Release(ctx context.Context, id uuid.UUID) error
	// Cancel flips the pending row of a credential to the canceled terminal
	// state without touching its bit
	Cancel(ctx context.Context, credentialID uuid.UUID) (*domain.ScheduledRevocation, error)
}
