package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eudiconnect/credential-platform/internal/core/domain"
	"github.com/eudiconnect/credential-platform/internal/core/event"
	"github.com/eudiconnect/credential-platform/internal/core/ports"
	"github.com/eudiconnect/credential-platform/internal/log"
	"github.com/eudiconnect/credential-platform/internal/pubsub"
)

type revocation struct {
	statusLists ports.StatusListRepository
	signer      ports.Signer
	publisher   pubsub.Publisher
}

// NewRevocation returns the public revocation service
func NewRevocation(statusLists ports.StatusListRepository, signer ports.Signer, publisher pubsub.Publisher) ports.RevocationService {
	return &revocation{
		statusLists: statusLists,
		signer:      signer,
		publisher:   publisher,
	}
}

func (r *revocation) IssueCredential(ctx context.Context, req ports.IssueCredentialRequest) (*ports.IssuedCredential, error) {
	if req.CredentialID == uuid.Nil {
		req.CredentialID = uuid.New()
	}

	assignment, err := r.statusLists.AssignIndex(ctx, req.IssuerDID, req.CredentialTypeID, req.MerchantID, req.CredentialID)
	if err != nil {
		log.Error(ctx, "issueCredential: assign index", "err", err, "credentialID", req.CredentialID)
		return nil, err
	}

	signed, err := r.signer.Sign(ctx, req.Payload)
	if err != nil {
		// the slot stays burned, indices are never reclaimed
		log.Error(ctx, "issueCredential: signer", "err", err, "credentialID", req.CredentialID)
		return nil, err
	}

	return &ports.IssuedCredential{
		SignedCredential: signed,
		StatusListID:     assignment.StatusListID,
		BitIndex:         assignment.BitIndex,
	}, nil
}

func (r *revocation) RevokeNow(ctx context.Context, credentialID uuid.UUID, reason string) (*domain.RevocationEvent, error) {
	assignment, err := r.statusLists.GetAssignment(ctx, credentialID)
	if err != nil {
		log.Error(ctx, "revokeNow: get assignment", "err", err, "credentialID", credentialID)
		return nil, err
	}

	if err := r.statusLists.Revoke(ctx, assignment.StatusListID, assignment.BitIndex); err != nil {
		log.Error(ctx, "revokeNow: revoke", "err", err, "credentialID", credentialID)
		return nil, err
	}

	ev := &domain.RevocationEvent{
		MerchantID:   assignment.MerchantID,
		CredentialID: credentialID,
		StatusListID: assignment.StatusListID,
		BitIndex:     assignment.BitIndex,
		Reason:       reason,
		RevokedAt:    time.Now().UTC(),
	}
	r.publishRevoked(ctx, ev)

	return ev, nil
}

func (r *revocation) RevokeBatch(ctx context.Context, merchantID uuid.UUID, credentialIDs []uuid.UUID, reason string) (*domain.BatchRevocationSummary, error) {
	summary := &domain.BatchRevocationSummary{Total: len(credentialIDs)}

	revoked := make([]string, 0, len(credentialIDs))
	for _, credentialID := range credentialIDs {
		assignment, err := r.statusLists.GetAssignment(ctx, credentialID)
		if err == nil {
			err = r.statusLists.Revoke(ctx, assignment.StatusListID, assignment.BitIndex)
		}
		if err != nil {
			log.Warn(ctx, "revokeBatch: credential failed", "err", err, "credentialID", credentialID)
			summary.Failed++
			summary.Errors = append(summary.Errors, domain.BatchRevocationError{
				CredentialID: credentialID,
				Message:      err.Error(),
			})
			continue
		}
		summary.Succeeded++
		revoked = append(revoked, credentialID.String())

		r.publishRevoked(ctx, &domain.RevocationEvent{
			MerchantID:   assignment.MerchantID,
			CredentialID: credentialID,
			StatusListID: assignment.StatusListID,
			BitIndex:     assignment.BitIndex,
			Reason:       reason,
			RevokedAt:    time.Now().UTC(),
			IsBatch:      true,
		})
	}

	if len(revoked) > 0 {
		ev := &event.CredentialsBatchRevoked{
			MerchantID:    merchantID.String(),
			CredentialIDs: revoked,
			Total:         summary.Total,
			Succeeded:     summary.Succeeded,
			Failed:        summary.Failed,
			RevokedAt:     time.Now().UTC(),
		}
		if err := r.publisher.Publish(ctx, event.CredentialsBatchRevokedEvent, ev); err != nil {
			log.Error(ctx, "revokeBatch: publish event", "err", err, "merchantID", merchantID)
		}
	}

	return summary, nil
}

func (r *revocation) CheckStatus(ctx context.Context, statusListID uuid.UUID, bitIndex int64) (bool, error) {
	return r.statusLists.IsRevoked(ctx, statusListID, bitIndex)
}

// publishRevoked hands the event to the notification pipeline. Publishing is
// fire and forget: the revocation is already committed and a pubsub failure
// must not turn it into an apparent error.
func (r *revocation) publishRevoked(ctx context.Context, ev *domain.RevocationEvent) {
	msg := &event.CredentialRevoked{
		MerchantID:      ev.MerchantID.String(),
		CredentialID:    ev.CredentialID.String(),
		StatusListID:    ev.StatusListID.String(),
		RevocationIndex: ev.BitIndex,
		Reason:          ev.Reason,
		RevokedAt:       ev.RevokedAt,
		IsBatch:         ev.IsBatch,
	}
	if err := r.publisher.Publish(ctx, event.CredentialRevokedEvent, msg); err != nil {
		log.Error(ctx, "publishing revocation event", "err", err, "credentialID", ev.CredentialID)
	}
}
