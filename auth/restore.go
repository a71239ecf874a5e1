package auth

import (
	"context"

	interrors "github.com/recipevault/go-client-auth/internal/errors"
)

// Restore rehydrates the projection from the durable session at startup.
// Any ambiguity resolves to signed-out: an expired token, a missing or
// invalid profile, or any storage failure clears the session rather than
// surfacing an error the user cannot act on.
func (f *Flow) Restore(ctx context.Context) {
	_, err := f.deps.Store.Token(ctx)
	if err != nil {
		if !interrors.Is(err, interrors.ErrNotFound) {
			f.log.Err(err).Msg("Session restore: token read failed, clearing session")
			f.clearStaleSession(ctx)
		}
		return
	}

	expiresAt, err := f.deps.Store.TokenExpiresAt(ctx)
	if err != nil {
		f.log.Warn().Msg("Session restore: token present without readable expiry, clearing session")
		f.clearStaleSession(ctx)
		return
	}
	if !f.nowTime().Before(expiresAt) {
		f.log.Info().Time("expired_at", expiresAt).Msg("Session restore: token expired, clearing session")
		f.clearStaleSession(ctx)
		return
	}

	profile, err := f.deps.Store.Profile(ctx)
	if err != nil {
		// Token without profile violates the all-or-nothing session invariant.
		f.log.Warn().Msg("Session restore: token present without valid profile, clearing session")
		f.clearStaleSession(ctx)
		return
	}

	f.deps.Projection.SetAuthenticated(profile)
	f.log.Info().Str("user", profile.ExternalID).Msg("Session restored")
}

// ConsumePostLoginRedirect returns the path stored by the last successful
// sign-in and deletes it, so the hint applies to exactly one relaunch.
// Returns "/" when no hint is stored or it cannot be read.
func (f *Flow) ConsumePostLoginRedirect(ctx context.Context) string {
	path, err := f.deps.Store.PostLoginRedirect(ctx)
	if err != nil {
		return "/"
	}
	_ = f.deps.Store.DeletePostLoginRedirect(ctx)
	if path == "" {
		return "/"
	}
	return path
}

func (f *Flow) clearStaleSession(ctx context.Context) {
	if err := f.deps.Store.ClearSession(ctx); err != nil {
		f.log.Err(err).Msg("Failed to clear stale session")
	}
}
