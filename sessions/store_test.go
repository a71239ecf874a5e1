package sessions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	interrors "github.com/recipevault/go-client-auth/internal/errors"
	"github.com/recipevault/go-client-auth/sessions"
	"github.com/recipevault/go-client-auth/sessions/repofakes"
	"github.com/recipevault/go-client-auth/users"
	"github.com/stretchr/testify/require"
)

var testProfile = users.Profile{
	ExternalID: "user-1",
	Email:      "john.doe@example.com",
	FirstName:  "John",
	LastName:   "Doe",
}

func newTestStore(t *testing.T) (*sessions.Store, *repofakes.FakeRepo) {
	t.Helper()

	repo := repofakes.NewFakeRepo()
	store, err := sessions.NewStore(repo)
	require.NoError(t, err)
	return store, repo
}

func TestNewStoreRequiresRepo(t *testing.T) {
	_, err := sessions.NewStore(nil)
	require.Error(t, err)
}

func TestSetSessionRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	require.NoError(t, store.SetSession(ctx, "token-1", expiresAt, &testProfile))

	session, err := store.Session(ctx)
	require.NoError(t, err)
	require.Equal(t, "token-1", session.Token)
	require.True(t, session.ExpiresAt.Equal(expiresAt))
	require.Equal(t, testProfile, session.Profile)
}

func TestSetSessionRejectsInvalidInput(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour)

	require.Error(t, store.SetSession(ctx, "", expiresAt, &testProfile))
	require.Error(t, store.SetSession(ctx, "token-1", time.Time{}, &testProfile))
	require.Error(t, store.SetSession(ctx, "token-1", expiresAt, &users.Profile{Email: "john@example.com"}))

	// Nothing was persisted by the rejected writes.
	require.False(t, repo.Has(sessions.KeyToken))
	require.False(t, repo.Has(sessions.KeyUserData))
}

func TestSetSessionIsAtomic(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()
	repo.SetManyErr = errors.New("disk full")

	err := store.SetSession(ctx, "token-1", time.Now().Add(time.Hour), &testProfile)
	require.Error(t, err)
	require.False(t, repo.Has(sessions.KeyToken))
	require.False(t, repo.Has(sessions.KeyTokenExpiresAt))
	require.False(t, repo.Has(sessions.KeyUserData))
}

func TestProfileRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetProfile(ctx, &testProfile))

	got, err := store.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, testProfile, *got)
}

func TestSetProfileRejectsInvalidProfile(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	err := store.SetProfile(ctx, &users.Profile{ExternalID: "u-1", Email: "bad"})
	require.Error(t, err)
	require.ErrorContains(t, err, interrors.ErrInvalidProfile.Error())
	require.False(t, repo.Has(sessions.KeyUserData))
}

func TestProfileDeletesCorruptPayloadOnRead(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "{{{"},
		{name: "schema invalid", payload: `{"externalId":"","email":"nope"}`},
		{name: "wrong shape", payload: `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, repo := newTestStore(t)
			ctx := context.Background()
			repo.Seed(sessions.KeyUserData, tt.payload)

			_, err := store.Profile(ctx)
			require.ErrorIs(t, err, interrors.ErrNotFound)
			require.False(t, repo.Has(sessions.KeyUserData))
		})
	}
}

func TestTokenExpiresAtDeletesUnparseableValue(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()
	repo.Seed(sessions.KeyTokenExpiresAt, "yesterday-ish")

	_, err := store.TokenExpiresAt(ctx)
	require.ErrorIs(t, err, interrors.ErrNotFound)
	require.False(t, repo.Has(sessions.KeyTokenExpiresAt))
}

func TestClearSessionLeavesTransientKeys(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetSession(ctx, "token-1", time.Now().Add(time.Hour), &testProfile))
	require.NoError(t, store.SetOAuthState(ctx, "state-1"))
	require.NoError(t, store.SetPostLoginRedirect(ctx, "/recipes"))

	require.NoError(t, store.ClearSession(ctx))

	require.False(t, repo.Has(sessions.KeyToken))
	require.False(t, repo.Has(sessions.KeyTokenExpiresAt))
	require.False(t, repo.Has(sessions.KeyUserData))
	require.True(t, repo.Has(sessions.KeyOAuthState))
	require.True(t, repo.Has(sessions.KeyPostLoginRedirect))
}

func TestOAuthStateLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.Error(t, store.SetOAuthState(ctx, ""))

	require.NoError(t, store.SetOAuthState(ctx, "state-1"))
	got, err := store.OAuthState(ctx)
	require.NoError(t, err)
	require.Equal(t, "state-1", got)

	require.NoError(t, store.DeleteOAuthState(ctx))
	_, err = store.OAuthState(ctx)
	require.ErrorIs(t, err, interrors.ErrNotFound)

	// Deleting an absent state is a no-op.
	require.NoError(t, store.DeleteOAuthState(ctx))
}

func TestSessionAbsentWhenAnyPartMissing(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	_, err := store.Session(ctx)
	require.ErrorIs(t, err, interrors.ErrNotFound)

	repo.Seed(sessions.KeyToken, "token-1")
	_, err = store.Session(ctx)
	require.ErrorIs(t, err, interrors.ErrNotFound)
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	session := sessions.Session{ExpiresAt: now}

	require.True(t, session.Expired(now), "invalid at the expiry instant")
	require.True(t, session.Expired(now.Add(time.Second)))
	require.False(t, session.Expired(now.Add(-time.Second)))
}
