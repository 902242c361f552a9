package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eudiconnect/credential-platform/internal/core/domain"
	"github.com/eudiconnect/credential-platform/internal/core/ports"
	"github.com/eudiconnect/credential-platform/internal/repositories"
)

// statusListRepoMock is an in memory stand in for the pgx backed repository
type statusListRepoMock struct {
	mu          sync.Mutex
	lists       map[uuid.UUID]*domain.StatusList
	byPair      map[string]uuid.UUID
	assignments map[uuid.UUID]*domain.CredentialAssignment

	assignErr error
	revokeErr error
}

func newStatusListRepoMock() *statusListRepoMock {
	return &statusListRepoMock{
		lists:       make(map[uuid.UUID]*domain.StatusList),
		byPair:      make(map[string]uuid.UUID),
		assignments: make(map[uuid.UUID]*domain.CredentialAssignment),
	}
}

func pairKey(issuerDID, credentialTypeID string) string {
	return issuerDID + "|" + credentialTypeID
}

func (m *statusListRepoMock) GetOrCreate(_ context.Context, issuerDID, credentialTypeID string) (*domain.StatusList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreate(issuerDID, credentialTypeID), nil
}

func (m *statusListRepoMock) getOrCreate(issuerDID, credentialTypeID string) *domain.StatusList {
	if id, ok := m.byPair[pairKey(issuerDID, credentialTypeID)]; ok {
		return m.lists[id]
	}
	list := domain.NewStatusList(issuerDID, credentialTypeID)
	list.ID = uuid.New()
	m.lists[list.ID] = list
	m.byPair[pairKey(issuerDID, credentialTypeID)] = list.ID
	return list
}

func (m *statusListRepoMock) GetByID(_ context.Context, id uuid.UUID) (*domain.StatusList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list, ok := m.lists[id]
	if !ok {
		return nil, fmt.Errorf("status list %s not found", id)
	}
	return list, nil
}

func (m *statusListRepoMock) AssignIndex(_ context.Context, issuerDID, credentialTypeID string, merchantID, credentialID uuid.UUID) (*domain.CredentialAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assignErr != nil {
		return nil, m.assignErr
	}
	list := m.getOrCreate(issuerDID, credentialTypeID)
	assignment := &domain.CredentialAssignment{
		ID:           uuid.New(),
		CredentialID: credentialID,
		MerchantID:   merchantID,
		StatusListID: list.ID,
		BitIndex:     list.AllocateIndex(),
		CreatedAt:    time.Now(),
	}
	m.assignments[credentialID] = assignment
	return assignment, nil
}

func (m *statusListRepoMock) Revoke(_ context.Context, statusListID uuid.UUID, bitIndex int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revokeErr != nil {
		return m.revokeErr
	}
	list, ok := m.lists[statusListID]
	if !ok {
		return fmt.Errorf("status list %s not found", statusListID)
	}
	_, err := list.SetBit(bitIndex)
	return err
}

func (m *statusListRepoMock) IsRevoked(_ context.Context, statusListID uuid.UUID, bitIndex int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list, ok := m.lists[statusListID]
	if !ok {
		return false, fmt.Errorf("status list %s not found", statusListID)
	}
	return list.Bit(bitIndex)
}

func (m *statusListRepoMock) GetAssignment(_ context.Context, credentialID uuid.UUID) (*domain.CredentialAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	assignment, ok := m.assignments[credentialID]
	if !ok {
		return nil, repositories.ErrCredentialNotAssigned
	}
	return assignment, nil
}

// scheduleRepoMock keeps scheduled revocations in memory with the same state
// machine as the real repository
type scheduleRepoMock struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.ScheduledRevocation
}

func newScheduleRepoMock() *scheduleRepoMock {
	return &scheduleRepoMock{rows: make(map[uuid.UUID]*domain.ScheduledRevocation)}
}

func (m *scheduleRepoMock) Save(_ context.Context, sr *domain.ScheduledRevocation) (*domain.ScheduledRevocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.CredentialID == sr.CredentialID && row.Status == domain.SchedulePending {
			row.ScheduledFor = sr.ScheduledFor
			row.Reason = sr.Reason
			row.Metadata = sr.Metadata
			return row, nil
		}
	}
	saved := *sr
	saved.ID = uuid.New()
	saved.Status = domain.SchedulePending
	m.rows[saved.ID] = &saved
	return &saved, nil
}

func (m *scheduleRepoMock) GetByID(_ context.Context, id uuid.UUID) (*domain.ScheduledRevocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("schedule %s not found", id)
	}
	return row, nil
}

func (m *scheduleRepoMock) GetPendingByCredentialID(_ context.Context, credentialID uuid.UUID) (*domain.ScheduledRevocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.CredentialID == credentialID && row.Status == domain.SchedulePending {
			return row, nil
		}
	}
	return nil, fmt.Errorf("no pending schedule for credential %s", credentialID)
}

func (m *scheduleRepoMock) ClaimDue(_ context.Context, now, executedAt time.Time, limit int) ([]*domain.ScheduledRevocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var claimed []*domain.ScheduledRevocation
	for _, row := range m.rows {
		if len(claimed) == limit {
			break
		}
		if row.Status == domain.SchedulePending && !row.ScheduledFor.After(now) {
			row.Status = domain.ScheduleExecuted
			at := executedAt
			row.ExecutedAt = &at
			claimed = append(claimed, row)
		}
	}
	return claimed, nil
}

func (m *scheduleRepoMock) Release(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.Status != domain.ScheduleExecuted {
		return fmt.Errorf("schedule %s is not claimed", id)
	}
	row.Status = domain.SchedulePending
	row.ExecutedAt = nil
	return nil
}

func (m *scheduleRepoMock) Cancel(_ context.Context, credentialID uuid.UUID) (*domain.ScheduledRevocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.CredentialID == credentialID && row.Status == domain.SchedulePending {
			row.Status = domain.ScheduleCanceled
			row.Reason = domain.CancelReason
			return row, nil
		}
	}
	return nil, fmt.Errorf("no pending schedule for credential %s", credentialID)
}

type webhookRepoMock struct {
	mu       sync.Mutex
	webhooks []*domain.Webhook
	err      error
}

func (m *webhookRepoMock) Save(_ context.Context, wh *domain.Webhook) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := *wh
	saved.ID = uuid.New()
	m.webhooks = append(m.webhooks, &saved)
	return saved.ID, nil
}

func (m *webhookRepoMock) GetActiveByMerchantAndEventType(_ context.Context, merchantID uuid.UUID, eventType string) ([]*domain.Webhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Webhook
	for _, wh := range m.webhooks {
		if wh.MerchantID != merchantID || !wh.Active {
			continue
		}
		for _, et := range wh.EventTypes {
			if et == eventType {
				out = append(out, wh)
				break
			}
		}
	}
	return out, nil
}

// delivererMock reports success for every url except the ones marked failing
type delivererMock struct {
	mu       sync.Mutex
	failing  map[string]bool
	payloads map[string][][]byte
}

func newDelivererMock(failingURLs ...string) *delivererMock {
	failing := make(map[string]bool, len(failingURLs))
	for _, u := range failingURLs {
		failing[u] = true
	}
	return &delivererMock{failing: failing, payloads: make(map[string][][]byte)}
}

func (d *delivererMock) Deliver(_ context.Context, url string, payload []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads[url] = append(d.payloads[url], payload)
	return !d.failing[url]
}

func (d *delivererMock) lastPayload(url string) map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	sent := d.payloads[url]
	if len(sent) == 0 {
		return nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(sent[len(sent)-1], &decoded); err != nil {
		return nil
	}
	return decoded
}

type signerMock struct {
	err error
}

func (s *signerMock) Sign(_ context.Context, credential json.RawMessage) (json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(`{"signed":` + string(credential) + `}`), nil
}

func (s *signerMock) Verify(_ context.Context, _ json.RawMessage) (*ports.VerificationResult, error) {
	return &ports.VerificationResult{Verified: true}, nil
}
