package users

import (
	"fmt"
	"net/mail"
	"strings"
)

// Profile is the user identity record returned by the backend and persisted
// locally alongside the session token. JSON tags match the backend payload.
type Profile struct {
	ExternalID string `json:"externalId"`          // Backend identifier for the user
	Email      string `json:"email"`               // User's email address
	FirstName  string `json:"firstName,omitempty"` // First name of the user
	LastName   string `json:"lastName,omitempty"`  // Last name of the user
}

// Validate checks the profile against the schema expected from the backend.
// externalId and a parseable email are required; names are optional.
func (p *Profile) Validate() error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}
	if strings.TrimSpace(p.ExternalID) == "" {
		return fmt.Errorf("externalId is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return fmt.Errorf("email %q is not a valid address", p.Email)
	}
	return nil
}

// FullName returns "First Last" with whichever parts are present.
func (p *Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
