package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the provider-independent identity record. Email is unique across
// the system; GoogleID, when present, maps to at most one user.
type User struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	GoogleID  string

	// Password is nil for accounts that originate purely from OAuth.
	// Such accounts can never pass password sign-in.
	Password *PasswordCredential

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PasswordCredential holds the bcrypt hash of a user-chosen password.
type PasswordCredential struct {
	Hash string
}

// DisplayName joins the name parts the way the callback response renders
// them.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Summary is the value copy of a user embedded in handshake payloads and
// API responses. It never carries credentials.
type Summary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	GoogleID  string `json:"googleId,omitempty"`
}

// Summarize produces the transient value copy referenced by handshake
// records, decoupling the broker's lifetime from the user store.
func (u *User) Summarize() Summary {
	return Summary{
		ID:        u.ID.String(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Name:      u.DisplayName(),
		Email:     u.Email,
		GoogleID:  u.GoogleID,
	}
}

// SplitDisplayName breaks a provider display name into first/last parts.
// The first word becomes the first name ("User" when absent), the remainder
// the last name.
func SplitDisplayName(displayName string) (firstName, lastName string) {
	parts := strings.Fields(displayName)
	if len(parts) == 0 {
		return "User", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
