// Package audit records verification state transitions for operators. Events
// are best-effort: a failed emit never aborts the transition it describes.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies what happened to a (user, community) pair.
type Kind string

const (
	KindCodeIssued     Kind = "code_issued"
	KindCodeMismatch   Kind = "code_mismatch"
	KindVerified       Kind = "verified"
	KindDeliveryFailed Kind = "delivery_failed"
	KindPrompted       Kind = "prompted"
	KindConfigChanged  Kind = "config_changed"
)

// Event is one audit record. CommunityID is empty for events that are not
// scoped to a single community (a code mismatch spans none).
type Event struct {
	ID          uuid.UUID `json:"id"`
	Kind        Kind      `json:"kind"`
	UserID      string    `json:"user_id,omitempty"`
	CommunityID string    `json:"community_id,omitempty"`
	Email       string    `json:"email,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	At          time.Time `json:"at"`
}

// NewEvent stamps identity and time so call sites stay one-liners.
func NewEvent(kind Kind) Event {
	return Event{ID: uuid.New(), Kind: kind, At: time.Now().UTC()}
}
