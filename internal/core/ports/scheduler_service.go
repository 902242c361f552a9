package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/eudiconnect/credential-platform/internal/core/domain"
)

// ScheduleRevocationRequest is the input of SchedulerService.Schedule
type ScheduleRevocationRequest struct {
	CredentialID     uuid.UUID
	MerchantID       uuid.UUID
	IssuerDID        string
	CredentialTypeID string
	ScheduledFor     time.Time
	Reason           string
	Metadata         json.RawMessage
}

// SchedulerService defers revocations to a future time and executes them
// exactly once when due
type SchedulerService interface {
	// Schedule records a deferred revocation, assigning a status list slot
	// first if the credential has none yet. A pending schedule for the same
	// credential is replaced, not duplicated.
	Schedule(ctx context.Context, req ScheduleRevocationRequest) (*domain.ScheduledRevocation, error)
	// Cancel terminates a pending schedule without revoking. The bit index is
	// never reclaimed.
	Cancel(ctx context.Context, credentialID uuid.UUID) (*domain.ScheduledRevocation, error)
	// RunDue executes every pending schedule due at now and returns the
	// executed rows. Safe to call concurrently: each due row is executed
	// exactly once. A row whose revocation fails stays pending for the next
	// pass and never aborts the batch.
	RunDue(ctx context.Context, now time.Time) ([]*domain.ScheduledRevocation, error)
}
