package sessions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	interrors "github.com/recipevault/go-client-auth/internal/errors"
	"github.com/recipevault/go-client-auth/users"
)

// Store is the session store: typed access to the durable session record and
// the transient handshake state, layered over a key-value Repo. Profile
// payloads are validated on every write and on every read; a stored profile
// that no longer decodes or validates is deleted and reported as absent
// rather than surfaced to callers.
type Store struct {
	repo Repo
}

// NewStore creates a Store over the given repo.
func NewStore(repo Repo) (*Store, error) {
	if repo == nil {
		return nil, errors.New("[NewStore] repo is required")
	}
	return &Store{repo: repo}, nil
}

// SetSession persists the full session record. Token, expiry and profile are
// written as one transactional unit so a failure can never leave a token
// without a profile or vice versa.
func (s *Store) SetSession(ctx context.Context, token string, expiresAt time.Time, profile *users.Profile) error {
	if token == "" {
		return errors.New("[Store.SetSession] token is required")
	}
	if expiresAt.IsZero() {
		return errors.New("[Store.SetSession] expiresAt is required")
	}
	if err := profile.Validate(); err != nil {
		return errors.Wrap(err, interrors.ErrInvalidProfile.Error())
	}
	payload, err := json.Marshal(profile)
	if err != nil {
		return errors.Wrap(err, "[Store.SetSession] marshal profile")
	}
	err = s.repo.SetMany(ctx, map[string]string{
		KeyToken:          token,
		KeyTokenExpiresAt: expiresAt.UTC().Format(expiresAtFormat),
		KeyUserData:       string(payload),
	})
	if err != nil {
		return errors.Wrap(err, "[Store.SetSession] repo.SetMany")
	}
	return nil
}

// Session reads the full session record. Returns errors.ErrNotFound when the
// token, expiry or profile is absent or unreadable.
func (s *Store) Session(ctx context.Context) (*Session, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	expiresAt, err := s.TokenExpiresAt(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := s.Profile(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, Profile: *profile}, nil
}

// Token returns the stored bearer token.
func (s *Store) Token(ctx context.Context) (string, error) {
	return s.repo.Get(ctx, KeyToken)
}

// TokenExpiresAt returns the stored token expiry. An unparseable stored value
// is deleted and reported as absent.
func (s *Store) TokenExpiresAt(ctx context.Context) (time.Time, error) {
	raw, err := s.repo.Get(ctx, KeyTokenExpiresAt)
	if err != nil {
		return time.Time{}, err
	}
	expiresAt, err := time.Parse(expiresAtFormat, raw)
	if err != nil {
		_ = s.repo.Delete(ctx, KeyTokenExpiresAt)
		return time.Time{}, interrors.ErrNotFound
	}
	return expiresAt, nil
}

// SetProfile validates and persists the user profile. Malformed data is never
// persisted silently.
func (s *Store) SetProfile(ctx context.Context, profile *users.Profile) error {
	if err := profile.Validate(); err != nil {
		return errors.Wrap(err, interrors.ErrInvalidProfile.Error())
	}
	payload, err := json.Marshal(profile)
	if err != nil {
		return errors.Wrap(err, "[Store.SetProfile] marshal profile")
	}
	return s.repo.Set(ctx, KeyUserData, string(payload))
}

// Profile returns the stored user profile, validating it on read. A stored
// payload that fails to decode or validate is deleted and reported as absent.
func (s *Store) Profile(ctx context.Context) (*users.Profile, error) {
	raw, err := s.repo.Get(ctx, KeyUserData)
	if err != nil {
		return nil, err
	}
	var profile users.Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		_ = s.repo.Delete(ctx, KeyUserData)
		return nil, interrors.ErrNotFound
	}
	if err := profile.Validate(); err != nil {
		_ = s.repo.Delete(ctx, KeyUserData)
		return nil, interrors.ErrNotFound
	}
	return &profile, nil
}

// ClearSession deletes the durable session keys (token, expiry, profile).
// Transient handshake keys are left untouched.
func (s *Store) ClearSession(ctx context.Context) error {
	for _, key := range []string{KeyToken, KeyTokenExpiresAt, KeyUserData} {
		if err := s.repo.Delete(ctx, key); err != nil {
			return errors.Wrapf(err, "[Store.ClearSession] delete %s", key)
		}
	}
	return nil
}

// SetOAuthState stores the anti-CSRF state for the in-flight sign-in attempt.
func (s *Store) SetOAuthState(ctx context.Context, state string) error {
	if state == "" {
		return errors.New("[Store.SetOAuthState] state is required")
	}
	return s.repo.Set(ctx, KeyOAuthState, state)
}

// OAuthState returns the stored anti-CSRF state.
func (s *Store) OAuthState(ctx context.Context) (string, error) {
	return s.repo.Get(ctx, KeyOAuthState)
}

// DeleteOAuthState removes the anti-CSRF state. The state is single-use and
// must be deleted after one comparison, whatever the result.
func (s *Store) DeleteOAuthState(ctx context.Context) error {
	return s.repo.Delete(ctx, KeyOAuthState)
}

// SetPostLoginRedirect stores the path to resume at after sign-in.
func (s *Store) SetPostLoginRedirect(ctx context.Context, path string) error {
	return s.repo.Set(ctx, KeyPostLoginRedirect, path)
}

// PostLoginRedirect returns the stored post-sign-in path.
func (s *Store) PostLoginRedirect(ctx context.Context) (string, error) {
	return s.repo.Get(ctx, KeyPostLoginRedirect)
}

// DeletePostLoginRedirect removes the stored post-sign-in path.
func (s *Store) DeletePostLoginRedirect(ctx context.Context) error {
	return s.repo.Delete(ctx, KeyPostLoginRedirect)
}
