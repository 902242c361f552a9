package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	"github.com/eudiconnect/credential-platform/internal/core/domain"
	"github.com/eudiconnect/credential-platform/internal/core/ports"
	"github.com/eudiconnect/credential-platform/internal/db"
)

// ErrScheduleNotFound scheduled revocation does not exist
var ErrScheduleNotFound = errors.New("scheduled revocation not found")

const scheduledRevocationColumns = `id, credential_id, status_list_id, bit_index, issuer_did, credential_type_id,
scheduled_for, status, executed_at, COALESCE(reason, ''), metadata, created_at, updated_at`

type scheduledRevocation struct {
	conn *db.Storage
}

// NewScheduledRevocation returns a new scheduled revocation repository
func NewScheduledRevocation(conn *db.Storage) ports.ScheduledRevocationRepository {
	return &scheduledRevocation{conn: conn}
}

func (r *scheduledRevocation) Save(ctx context.Context, sr *domain.ScheduledRevocation) (*domain.ScheduledRevocation, error) {
	if sr.Metadata.Status == pgtype.Undefined {
		sr.Metadata.Status = pgtype.Null
	}

	// the partial unique index on pending credential_id turns a second
	// schedule for the same credential into a replace of the live row
	row := r.conn.Pgx.QueryRow(ctx, `
INSERT INTO scheduled_revocations (credential_id, status_list_id, bit_index, issuer_did, credential_type_id, scheduled_for, reason, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (credential_id) WHERE status = 'pending' DO UPDATE
    SET scheduled_for = EXCLUDED.scheduled_for,
        reason        = EXCLUDED.reason,
        metadata      = EXCLUDED.metadata,
        updated_at    = now()
RETURNING `+scheduledRevocationColumns,
		sr.CredentialID, sr.StatusListID, sr.BitIndex, sr.IssuerDID, sr.CredentialTypeID,
		sr.ScheduledFor.UTC(), sr.Reason, sr.Metadata)

	return scanScheduledRevocation(row)
}

func (r *scheduledRevocation) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledRevocation, error) {
	row := r.conn.Pgx.QueryRow(ctx,
		`SELECT `+scheduledRevocationColumns+` FROM scheduled_revocations WHERE id = $1`, id)
	sr, err := scanScheduledRevocation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	return sr, err
}

func (r *scheduledRevocation) GetPendingByCredentialID(ctx context.Context, credentialID uuid.UUID) (*domain.ScheduledRevocation, error) {
	row := r.conn.Pgx.QueryRow(ctx,
		`SELECT `+scheduledRevocationColumns+` FROM scheduled_revocations WHERE credential_id = $1 AND status = 'pending'`,
		credentialID)
	sr, err := scanScheduledRevocation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	return sr, err
}

// ClaimDue flips due pending rows to executed in a single conditional update.
// SKIP LOCKED keeps overlapping scheduler passes from blocking on or double
// claiming the same rows.
func (r *scheduledRevocation) ClaimDue(ctx context.Context, now, executedAt time.Time, limit int) ([]*domain.ScheduledRevocation, error) {
	rows, err := r.conn.Pgx.Query(ctx, `
UPDATE scheduled_revocations
SET status = 'executed', executed_at = $2, updated_at = now()
WHERE id IN (SELECT id
             FROM scheduled_revocations
             WHERE status = 'pending' AND scheduled_for <= $1
             ORDER BY scheduled_for
             LIMIT $3 FOR UPDATE SKIP LOCKED)
RETURNING `+scheduledRevocationColumns,
		now.UTC(), executedAt.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claimed []*domain.ScheduledRevocation
	for rows.Next() {
		sr, err := scanScheduledRevocation(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, sr)
	}
	return claimed, rows.Err()
}

func (r *scheduledRevocation) Release(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Pgx.Exec(ctx, `
UPDATE scheduled_revocations
SET status = 'pending', executed_at = NULL, updated_at = now()
WHERE id = $1 AND status = 'executed'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *scheduledRevocation) Cancel(ctx context.Context, credentialID uuid.UUID) (*domain.ScheduledRevocation, error) {
	row := r.conn.Pgx.QueryRow(ctx, `
UPDATE scheduled_revocations
SET status = 'canceled', reason = $2, updated_at = now()
WHERE credential_id = $1 AND status = 'pending'
RETURNING `+scheduledRevocationColumns,
		credentialID, domain.CancelReason)
	sr, err := scanScheduledRevocation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	return sr, err
}

func scanScheduledRevocation(row pgx.Row) (*domain.ScheduledRevocation, error) {
	sr := &domain.ScheduledRevocation{}
	if err := row.Scan(&sr.ID, &sr.CredentialID, &sr.StatusListID, &sr.BitIndex, &sr.IssuerDID,
		&sr.CredentialTypeID, &sr.ScheduledFor, &sr.Status, &sr.ExecutedAt, &sr.Reason, &sr.Metadata,
		&sr.CreatedAt, &sr.UpdatedAt); err != nil {
		return nil, err
	}
	return sr, nil
}
