package auth

import "github.com/pkg/errors"

var (
	// ErrSignInInProgress is returned when SignIn is called while another
	// attempt is still in flight. The handshake state is single-slot.
	ErrSignInInProgress = errors.New("sign-in already in progress")
)

// User-visible messages recorded in the projection. Transport, HTTP-status
// and schema failures all collapse to the generic message; the state
// mismatch gets its own because it is security-relevant.
const (
	msgSignInFailed       = "failed to start authentication"
	msgCompleteFailed     = "failed to complete authentication"
	msgMissingCodeOrState = "missing code or state"
	msgStateMismatch      = "invalid state / possible CSRF"
	msgPersistFailed      = "failed to save session"
	msgSignOutFailed      = "failed to clear session"
)
