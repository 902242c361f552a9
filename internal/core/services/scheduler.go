package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"

	"github.com/eudiconnect/credential-platform/internal/core/domain"
	"github.com/eudiconnect/credential-platform/internal/core/event"
	"github.com/eudiconnect/credential-platform/internal/core/ports"
	"github.com/eudiconnect/credential-platform/internal/log"
	"github.com/eudiconnect/credential-platform/internal/pubsub"
	"github.com/eudiconnect/credential-platform/internal/repositories"
)

type scheduler struct {
	scheduledRevocations ports.ScheduledRevocationRepository
	statusLists          ports.StatusListRepository
	publisher            pubsub.Publisher
	batchSize            int
}

// NewScheduler returns the scheduled revocation service
func NewScheduler(scheduledRevocations ports.ScheduledRevocationRepository, statusLists ports.StatusListRepository, publisher pubsub.Publisher, batchSize int) ports.SchedulerService {
	return &scheduler{
		scheduledRevocations: scheduledRevocations,
		statusLists:          statusLists,
		publisher:            publisher,
		batchSize:            batchSize,
	}
}

func (s *scheduler) Schedule(ctx context.Context, req ports.ScheduleRevocationRequest) (*domain.ScheduledRevocation, error) {
	assignment, err := s.statusLists.GetAssignment(ctx, req.CredentialID)
	if errors.Is(err, repositories.ErrCredentialNotAssigned) {
		// a credential scheduled before issuance gets its slot here
		assignment, err = s.statusLists.AssignIndex(ctx, req.IssuerDID, req.CredentialTypeID, req.MerchantID, req.CredentialID)
	}
	if err != nil {
		log.Error(ctx, "schedule: get assignment", "err", err, "credentialID", req.CredentialID)
		return nil, err
	}

	metadata := pgtype.JSONB{Status: pgtype.Null}
	if len(req.Metadata) > 0 {
		metadata = pgtype.JSONB{Bytes: req.Metadata, Status: pgtype.Present}
	}

	sr := &domain.ScheduledRevocation{
		CredentialID:     req.CredentialID,
		StatusListID:     assignment.StatusListID,
		BitIndex:         assignment.BitIndex,
		IssuerDID:        req.IssuerDID,
		CredentialTypeID: req.CredentialTypeID,
		ScheduledFor:     req.ScheduledFor.UTC(),
		Status:           domain.SchedulePending,
		Reason:           req.Reason,
		Metadata:         metadata,
	}

	saved, err := s.scheduledRevocations.Save(ctx, sr)
	if err != nil {
		log.Error(ctx, "schedule: save", "err", err, "credentialID", req.CredentialID)
		return nil, err
	}

	log.Info(ctx, "revocation scheduled", "credentialID", req.CredentialID, "scheduledFor", saved.ScheduledFor)
	return saved, nil
}

func (s *scheduler) Cancel(ctx context.Context, credentialID uuid.UUID) (*domain.ScheduledRevocation, error) {
	canceled, err := s.scheduledRevocations.Cancel(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "scheduled revocation canceled", "credentialID", credentialID)
	return canceled, nil
}

// RunDue claims every due pending row and executes the claimed ones. A row
// whose revocation fails is released back to pending for the next pass, the
// rest of the batch proceeds.
func (s *scheduler) RunDue(ctx context.Context, now time.Time) ([]*domain.ScheduledRevocation, error) {
	claimed, err := s.scheduledRevocations.ClaimDue(ctx, now, now.UTC(), s.batchSize)
	if err != nil {
		log.Error(ctx, "runDue: claim due rows", "err", err)
		return nil, err
	}
	if len(claimed) == 0 {
		return nil, nil
	}

	log.Info(ctx, "runDue: executing scheduled revocations", "count", len(claimed))

	executed := make([]*domain.ScheduledRevocation, 0, len(claimed))
	for _, sr := range claimed {
		if err := s.statusLists.Revoke(ctx, sr.StatusListID, sr.BitIndex); err != nil {
			log.Error(ctx, "runDue: revoke failed, releasing row", "err", err, "scheduleID", sr.ID, "credentialID", sr.CredentialID)
			if rErr := s.scheduledRevocations.Release(ctx, sr.ID); rErr != nil {
				log.Error(ctx, "runDue: release claimed row", "err", rErr, "scheduleID", sr.ID)
			}
			continue
		}

		executed = append(executed, sr)
		s.publishExecuted(ctx, sr)
	}

	return executed, nil
}

func (s *scheduler) publishExecuted(ctx context.Context, sr *domain.ScheduledRevocation) {
	assignment, err := s.statusLists.GetAssignment(ctx, sr.CredentialID)
	if err != nil {
		log.Error(ctx, "runDue: get assignment for notification", "err", err, "credentialID", sr.CredentialID)
		return
	}

	revokedAt := time.Now().UTC()
	if sr.ExecutedAt != nil {
		revokedAt = *sr.ExecutedAt
	}
	msg := &event.CredentialRevoked{
		MerchantID:      assignment.MerchantID.String(),
		CredentialID:    sr.CredentialID.String(),
		StatusListID:    sr.StatusListID.String(),
		RevocationIndex: sr.BitIndex,
		Reason:          sr.Reason,
		RevokedAt:       revokedAt,
	}
	if err := s.publisher.Publish(ctx, event.CredentialRevokedEvent, msg); err != nil {
		log.Error(ctx, "runDue: publish revocation event", "err", err, "credentialID", sr.CredentialID)
	}
}
