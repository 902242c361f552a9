package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eudiconnect/credential-platform/internal/core/domain"
	"github.com/eudiconnect/credential-platform/internal/core/ports"
	"github.com/eudiconnect/credential-platform/internal/log"
	"github.com/eudiconnect/credential-platform/internal/repositories"
)

// Server exposes the revocation subsystem over HTTP
type Server struct {
	revocations ports.RevocationService
	scheduler   ports.SchedulerService
}

// NewServer creates the revocation API server
func NewServer(revocations ports.RevocationService, scheduler ports.SchedulerService) *Server {
	return &Server{
		revocations: revocations,
		scheduler:   scheduler,
	}
}

// Routes mounts the API on r
func (s *Server) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/credentials", s.issueCredential)
		r.Post("/credentials/revoke", s.revokeCredential)
		r.Post("/credentials/revoke-batch", s.revokeBatch)
		r.Post("/credentials/{id}/schedule-revocation", s.scheduleRevocation)
		r.Delete("/credentials/{id}/schedule-revocation", s.cancelScheduledRevocation)
		r.Get("/status-lists/{id}/status/{index}", s.checkStatus)
	})
}

type issueCredentialRequest struct {
	MerchantID       uuid.UUID       `json:"merchant_id"`
	CredentialID     uuid.UUID       `json:"credential_id,omitempty"`
	IssuerDID        string          `json:"issuer_did"`
	CredentialTypeID string          `json:"credential_type_id"`
	Payload          json.RawMessage `json:"payload"`
}

type issueCredentialResponse struct {
	SignedCredential json.RawMessage `json:"signed_credential"`
	StatusListID     uuid.UUID       `json:"status_list_id"`
	RevocationIndex  int64           `json:"revocation_index"`
}

func (s *Server) issueCredential(w http.ResponseWriter, r *http.Request) {
	var req issueCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IssuerDID == "" || req.CredentialTypeID == "" {
		writeError(w, http.StatusBadRequest, "issuer_did and credential_type_id are required")
		return
	}

	issued, err := s.revocations.IssueCredential(r.Context(), ports.IssueCredentialRequest{
		MerchantID:       req.MerchantID,
		CredentialID:     req.CredentialID,
		IssuerDID:        req.IssuerDID,
		CredentialTypeID: req.CredentialTypeID,
		Payload:          req.Payload,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, issueCredentialResponse{
		SignedCredential: issued.SignedCredential,
		StatusListID:     issued.StatusListID,
		RevocationIndex:  issued.BitIndex,
	})
}

type revokeRequest struct {
	CredentialID uuid.UUID `json:"credential_id"`
	Reason       string    `json:"reason,omitempty"`
}

type revokeResponse struct {
	CredentialID    uuid.UUID `json:"credential_id"`
	StatusListID    uuid.UUID `json:"status_list_id"`
	RevocationIndex int64     `json:"revocation_index"`
	RevokedAt       time.Time `json:"revoked_at"`
}

func (s *Server) revokeCredential(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CredentialID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "credential_id is required")
		return
	}

	ctx := log.With(r.Context(), "credentialID", req.CredentialID)
	ev, err := s.revocations.RevokeNow(ctx, req.CredentialID, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, revokeResponse{
		CredentialID:    ev.CredentialID,
		StatusListID:    ev.StatusListID,
		RevocationIndex: ev.BitIndex,
		RevokedAt:       ev.RevokedAt,
	})
}

type revokeBatchRequest struct {
	MerchantID    uuid.UUID   `json:"merchant_id"`
	CredentialIDs []uuid.UUID `json:"credential_ids"`
	Reason        string      `json:"reason,omitempty"`
}

func (s *Server) revokeBatch(w http.ResponseWriter, r *http.Request) {
	var req revokeBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.CredentialIDs) == 0 {
		writeError(w, http.StatusBadRequest, "credential_ids is required")
		return
	}

	ctx := log.With(r.Context(), "merchantID", req.MerchantID, "batchSize", len(req.CredentialIDs))
	summary, err := s.revocations.RevokeBatch(ctx, req.MerchantID, req.CredentialIDs, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type scheduleRevocationRequest struct {
	MerchantID       uuid.UUID       `json:"merchant_id,omitempty"`
	IssuerDID        string          `json:"issuer_did"`
	CredentialTypeID string          `json:"credential_type_id"`
	ScheduledFor     time.Time       `json:"scheduled_for"`
	Reason           string          `json:"reason,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
}

type scheduleRevocationResponse struct {
	ID           uuid.UUID             `json:"id"`
	CredentialID uuid.UUID             `json:"credential_id"`
	ScheduledFor time.Time             `json:"scheduled_for"`
	Status       domain.ScheduleStatus `json:"status"`
}

func (s *Server) scheduleRevocation(w http.ResponseWriter, r *http.Request) {
	credentialID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid credential id")
		return
	}
	var req scheduleRevocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ScheduledFor.Before(time.Now()) {
		writeError(w, http.StatusBadRequest, "scheduled_for must be in the future")
		return
	}

	ctx := log.With(r.Context(), "credentialID", credentialID)
	saved, err := s.scheduler.Schedule(ctx, ports.ScheduleRevocationRequest{
		CredentialID:     credentialID,
		MerchantID:       req.MerchantID,
		IssuerDID:        req.IssuerDID,
		CredentialTypeID: req.CredentialTypeID,
		ScheduledFor:     req.ScheduledFor,
		Reason:           req.Reason,
		Metadata:         req.Metadata,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, scheduleRevocationResponse{
		ID:           saved.ID,
		CredentialID: saved.CredentialID,
		ScheduledFor: saved.ScheduledFor,
		Status:       saved.Status,
	})
}

func (s *Server) cancelScheduledRevocation(w http.ResponseWriter, r *http.Request) {
	credentialID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid credential id")
		return
	}

	canceled, err := s.scheduler.Cancel(r.Context(), credentialID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, scheduleRevocationResponse{
		ID:           canceled.ID,
		CredentialID: canceled.CredentialID,
		ScheduledFor: canceled.ScheduledFor,
		Status:       canceled.Status,
	})
}

type statusResponse struct {
	StatusListID    uuid.UUID `json:"status_list_id"`
	RevocationIndex int64     `json:"revocation_index"`
	Revoked         bool      `json:"revoked"`
}

func (s *Server) checkStatus(w http.ResponseWriter, r *http.Request) {
	statusListID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid status list id")
		return
	}
	index, err := strconv.ParseInt(chi.URLParam(r, "index"), 10, 64)
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid revocation index")
		return
	}

	revoked, err := s.revocations.CheckStatus(r.Context(), statusListID, index)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		StatusListID:    statusListID,
		RevocationIndex: index,
		Revoked:         revoked,
	})
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repositories.ErrCredentialNotAssigned),
		errors.Is(err, repositories.ErrStatusListNotFound),
		errors.Is(err, repositories.ErrScheduleNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repositories.ErrCredentialAlreadyAssigned):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrIndexOutOfRange):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Error(r.Context(), "unhandled api error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
