package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/eudiconnect/credential-platform/internal/cache"
	"github.com/eudiconnect/credential-platform/internal/core/domain"
	"github.com/eudiconnect/credential-platform/internal/core/ports"
	"github.com/eudiconnect/credential-platform/internal/db"
)

const duplicateViolationErrorCode = "23505"

var (
	// ErrStatusListNotFound status list does not exist
	ErrStatusListNotFound = errors.New("status list not found")
	// ErrCredentialNotAssigned the credential was never issued through this subsystem
	ErrCredentialNotAssigned = errors.New("credential has no status list assignment")
	// ErrCredentialAlreadyAssigned the credential already owns a status list slot
	ErrCredentialAlreadyAssigned = errors.New("credential already assigned to a status list")
)

// statusListReadTTL bounds the staleness of the lock free read path
const statusListReadTTL = 30 * time.Second

const selectStatusList = `
SELECT id, issuer_did, credential_type_id, encoded_list, revoked_count, next_free_index, metadata, created_at, updated_at
FROM status_lists`

type statusList struct {
	conn   *db.Storage
	cachex cache.Cache
}

// NewStatusList returns a new status list repository
func NewStatusList(conn *db.Storage, cachex cache.Cache) ports.StatusListRepository {
	return &statusList{conn: conn, cachex: cachex}
}

// cachedStatusList is the subset of a status list kept in the cache for the
// read path
type cachedStatusList struct {
	Bitstring     []byte `json:"bitstring"`
	NextFreeIndex int64  `json:"nextFreeIndex"`
}

func (s *statusList) GetOrCreate(ctx context.Context, issuerDID, credentialTypeID string) (*domain.StatusList, error) {
	if err := s.ensureExists(ctx, s.conn.Pgx, issuerDID, credentialTypeID); err != nil {
		return nil, err
	}

	row := s.conn.Pgx.QueryRow(ctx, selectStatusList+` WHERE issuer_did = $1 AND credential_type_id = $2`,
		issuerDID, credentialTypeID)
	return scanStatusList(row)
}

func (s *statusList) GetByID(ctx context.Context, id uuid.UUID) (*domain.StatusList, error) {
	row := s.conn.Pgx.QueryRow(ctx, selectStatusList+` WHERE id = $1`, id)
	list, err := scanStatusList(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStatusListNotFound
	}
	return list, err
}

func (s *statusList) AssignIndex(ctx context.Context, issuerDID, credentialTypeID string, merchantID, credentialID uuid.UUID) (*domain.CredentialAssignment, error) {
	assignment := &domain.CredentialAssignment{
		CredentialID: credentialID,
		MerchantID:   merchantID,
	}

	err := s.conn.Pgx.BeginFunc(ctx, func(tx pgx.Tx) error {
		if err := s.ensureExists(ctx, tx, issuerDID, credentialTypeID); err != nil {
			return err
		}

		row := tx.QueryRow(ctx, selectStatusList+` WHERE issuer_did = $1 AND credential_type_id = $2 FOR UPDATE`,
			issuerDID, credentialTypeID)
		list, err := scanStatusList(row)
		if err != nil {
			return err
		}

		assignment.StatusListID = list.ID
		assignment.BitIndex = list.AllocateIndex()

		encoded, err := list.Encode()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE status_lists SET encoded_list = $2, next_free_index = $3, updated_at = now() WHERE id = $1`,
			list.ID, encoded, list.NextFreeIndex); err != nil {
			return err
		}

		return tx.QueryRow(ctx, `INSERT INTO credential_assignments (credential_id, merchant_id, status_list_id, bit_index)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`,
			assignment.CredentialID, assignment.MerchantID, assignment.StatusListID, assignment.BitIndex).
			Scan(&assignment.ID, &assignment.CreatedAt)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == duplicateViolationErrorCode {
			return nil, ErrCredentialAlreadyAssigned
		}
		return nil, fmt.Errorf("could not assign index: %w", err)
	}

	s.invalidate(ctx, assignment.StatusListID)
	return assignment, nil
}

func (s *statusList) Revoke(ctx context.Context, statusListID uuid.UUID, bitIndex int64) error {
	err := s.conn.Pgx.BeginFunc(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, selectStatusList+` WHERE id = $1 FOR UPDATE`, statusListID)
		list, err := scanStatusList(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStatusListNotFound
		}
		if err != nil {
			return err
		}

		changed, err := list.SetBit(bitIndex)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		encoded, err := list.Encode()
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE status_lists SET encoded_list = $2, revoked_count = $3, updated_at = now() WHERE id = $1`,
			list.ID, encoded, list.RevokedCount)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, statusListID)
	return nil
}

func (s *statusList) IsRevoked(ctx context.Context, statusListID uuid.UUID, bitIndex int64) (bool, error) {
	var cached cachedStatusList
	if s.cachex.Get(ctx, statusListKey(statusListID), &cached) {
		list := domain.StatusList{Bitstring: cached.Bitstring, NextFreeIndex: cached.NextFreeIndex}
		return list.Bit(bitIndex)
	}

	list, err := s.GetByID(ctx, statusListID)
	if err != nil {
		return false, err
	}

	// cache population is best effort
	cached = cachedStatusList{Bitstring: list.Bitstring, NextFreeIndex: list.NextFreeIndex}
	_ = s.cachex.Set(ctx, statusListKey(statusListID), cached, statusListReadTTL)

	return list.Bit(bitIndex)
}

func (s *statusList) GetAssignment(ctx context.Context, credentialID uuid.UUID) (*domain.CredentialAssignment, error) {
	assignment := &domain.CredentialAssignment{}
	err := s.conn.Pgx.QueryRow(ctx, `
SELECT id, credential_id, merchant_id, status_list_id, bit_index, created_at
FROM credential_assignments WHERE credential_id = $1`, credentialID).
		Scan(&assignment.ID, &assignment.CredentialID, &assignment.MerchantID, &assignment.StatusListID, &assignment.BitIndex, &assignment.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCredentialNotAssigned
	}
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// ensureExists inserts an empty list for the pair. The unique constraint on
// (issuer_did, credential_type_id) absorbs concurrent first use.
func (s *statusList) ensureExists(ctx context.Context, conn db.Querier, issuerDID, credentialTypeID string) error {
	encoded, err := domain.NewStatusList(issuerDID, credentialTypeID).Encode()
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, `INSERT INTO status_lists (issuer_did, credential_type_id, encoded_list)
VALUES ($1, $2, $3)
ON CONFLICT ON CONSTRAINT status_lists_issuer_type_key DO NOTHING`,
		issuerDID, credentialTypeID, encoded)
	return err
}

func (s *statusList) invalidate(ctx context.Context, statusListID uuid.UUID) {
	_ = s.cachex.Delete(ctx, statusListKey(statusListID))
}

func statusListKey(id uuid.UUID) string {
	return "status_list_" + id.String()
}

func scanStatusList(row pgx.Row) (*domain.StatusList, error) {
	list := &domain.StatusList{}
	var encoded []byte
	if err := row.Scan(&list.ID, &list.IssuerDID, &list.CredentialTypeID, &encoded, &list.RevokedCount,
		&list.NextFreeIndex, &list.Metadata, &list.CreatedAt, &list.UpdatedAt); err != nil {
		return nil, err
	}

	raw, err := domain.DecodeBitstring(encoded)
	if err != nil {
		return nil, err
	}
	list.Bitstring = raw
	return list, nil
}
