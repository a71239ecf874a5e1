package auth

import (
	"context"
	"time"

	interrors "github.com/recipevault/go-client-auth/internal/errors"
	"github.com/recipevault/go-client-auth/sessions"
	"golang.org/x/oauth2"
)

// NewTokenSource exposes the stored session as an oauth2.TokenSource, so
// collaborators can build authenticated API clients with oauth2.NewClient.
// The source cannot refresh: an absent session yields ErrNotAuthenticated and
// an expired one ErrSessionExpired, both prompts to run the sign-in flow.
func NewTokenSource(ctx context.Context, store *sessions.Store) oauth2.TokenSource {
	return &sessionTokenSource{ctx: ctx, store: store}
}

type sessionTokenSource struct {
	ctx   context.Context
	store *sessions.Store
}

func (ts *sessionTokenSource) Token() (*oauth2.Token, error) {
	session, err := ts.store.Session(ts.ctx)
	if err != nil {
		if interrors.Is(err, interrors.ErrNotFound) {
			return nil, interrors.ErrNotAuthenticated
		}
		return nil, interrors.Wrapf(err, "read session")
	}
	if session.Expired(time.Now()) {
		return nil, interrors.ErrSessionExpired
	}
	return &oauth2.Token{
		AccessToken: session.Token,
		TokenType:   "Bearer",
		Expiry:      session.ExpiresAt,
	}, nil
}
