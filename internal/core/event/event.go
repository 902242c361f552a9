package event

import (
	"encoding/json"
	"time"

	"github.com/eudiconnect/credential-platform/internal/pubsub"
)

// Topics published by the revocation core
const (
	CredentialRevokedEvent       = "credentialRevokedEvent"       // CredentialRevokedEvent single credential revoked
	CredentialsBatchRevokedEvent = "credentialsBatchRevokedEvent" // CredentialsBatchRevokedEvent batch of credentials revoked
)

// CredentialRevoked defines the credentialRevoked data
type CredentialRevoked struct {
	MerchantID      string    `json:"merchantID"`
	CredentialID    string    `json:"credentialID"`
	StatusListID    string    `json:"statusListID"`
	RevocationIndex int64     `json:"revocationIndex"`
	Reason          string    `json:"reason"`
	RevokedAt       time.Time `json:"revokedAt"`
	IsBatch         bool      `json:"isBatch"`
}

// Marshal marshals the event into a pubsub.Message
func (ev *CredentialRevoked) Marshal() (msg pubsub.Message, err error) {
	return json.Marshal(ev)
}

// Unmarshal creates an event from that message
func (ev *CredentialRevoked) Unmarshal(msg pubsub.Message) error {
	return json.Unmarshal(msg, &ev)
}

// CredentialsBatchRevoked defines the credentialsBatchRevoked data
type CredentialsBatchRevoked struct {
	MerchantID    string    `json:"merchantID"`
	CredentialIDs []string  `json:"credentialIDs"`
	Total         int       `json:"total"`
	Succeeded     int       `json:"succeeded"`
	Failed        int       `json:"failed"`
	RevokedAt     time.Time `json:"revokedAt"`
}

// Marshal marshals the event into a pubsub.Message
func (ev *CredentialsBatchRevoked) Marshal() (msg pubsub.Message, err error) {
	return json.Marshal(ev)
}

// Unmarshal creates an event from that message
func (ev *CredentialsBatchRevoked) Unmarshal(msg pubsub.Message) error {
	return json.Unmarshal(msg, &ev)
}
