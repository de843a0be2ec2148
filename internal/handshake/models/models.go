package models

import (
	"time"

	identity "authbroker/internal/identity/models"
	jwttoken "authbroker/internal/jwt_token"
)

// State is the lifecycle state of a handshake record.
type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transition is possible except
// consumption.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Record is the handshake state keyed by its handle. User and Credential are
// populated together, atomically, only on the Pending→Completed transition.
type Record struct {
	Handle    string    `json:"handle"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`

	// Fingerprint binds the poll leg to the client that initiated the
	// handshake. Empty when the initiate request carried no client metadata.
	Fingerprint string `json:"fingerprint,omitempty"`

	User       *identity.Summary    `json:"user,omitempty"`
	Credential *jwttoken.Credential `json:"credential,omitempty"`
}

// TerminalPayload is what a callback attaches when it finalizes a record.
// Both fields are nil for the Failed state.
type TerminalPayload struct {
	User       *identity.Summary
	Credential *jwttoken.Credential
}
