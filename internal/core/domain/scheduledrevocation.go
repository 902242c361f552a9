package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
)

// ScheduleStatus is the state of a scheduled revocation
type ScheduleStatus string

// Scheduled revocation states. Pending rows are the only mutable ones:
// executed and canceled are terminal.
const (
	SchedulePending  ScheduleStatus = "pending"
	ScheduleExecuted ScheduleStatus = "executed"
	ScheduleCanceled ScheduleStatus = "canceled"
)

// CancelReason is stamped on the reason column when a pending schedule is canceled
const CancelReason = "canceled"

// ScheduledRevocation is a deferred revocation order. At most one pending row
// may exist per credential. Rows are never deleted, they are the audit trail
// of the revocation subsystem.
type ScheduledRevocation struct {
	ID               uuid.UUID
	CredentialID     uuid.UUID
	StatusListID     uuid.UUID
	BitIndex         int64
	IssuerDID        string
	CredentialTypeID string
	ScheduledFor     time.Time
	Status           ScheduleStatus
	ExecutedAt       *time.Time
	Reason           string
	Metadata         pgtype.JSONB
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
