package sessions

import (
	"time"

	"github.com/recipevault/go-client-auth/users"
)

// Logical storage keys. These are fixed names in the durable device-local
// store; collaborators must never invent additional session keys.
const (
	// Durable session keys, cleared together on sign-out.
	KeyToken          = "app_token"
	KeyTokenExpiresAt = "token_expires_at"
	KeyUserData       = "user_data"

	// Transient handshake keys, scoped to one sign-in attempt.
	KeyOAuthState        = "oauth_state"
	KeyPostLoginRedirect = "post_login_redirect"
)

// expiresAtFormat is the wire and storage format for token expiry.
const expiresAtFormat = time.RFC3339

// Session is the durable record of an authenticated identity. Token and
// profile are persisted together or not at all; a session missing either is
// treated as no session.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Profile   users.Profile
}

// Expired reports whether the session is invalid at the given instant.
// A session is invalid at or after ExpiresAt.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
