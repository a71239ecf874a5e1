package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/recipevault/go-client-auth/sessions"
	"github.com/stretchr/testify/require"
)

func seedSession(t *testing.T, f *testFixture, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, f.store.SetSession(context.Background(), testToken, expiresAt, &testProfile))
}

func TestRestoreWithNoSession(t *testing.T) {
	f := setupTestFixture(t)

	f.flow.Restore(context.Background())

	snap := f.projection.Snapshot()
	require.False(t, snap.IsAuthenticated)
	require.Empty(t, snap.Err, "restoration never surfaces a user-visible error")
}

func TestRestoreWithValidSession(t *testing.T) {
	f := setupTestFixture(t)
	seedSession(t, f, testNow.Add(time.Hour))

	f.flow.Restore(context.Background())

	snap := f.projection.Snapshot()
	require.True(t, snap.IsAuthenticated)
	require.Equal(t, testProfile, *snap.User)
	require.Empty(t, snap.Err)
}

func TestRestoreWithExpiredSession(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
	}{
		{name: "long expired", expiresAt: testNow.Add(-time.Hour)},
		{name: "expires exactly now", expiresAt: testNow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			ctx := context.Background()
			seedSession(t, f, tt.expiresAt)

			f.flow.Restore(ctx)

			snap := f.projection.Snapshot()
			require.False(t, snap.IsAuthenticated)
			require.Empty(t, snap.Err)

			// Store emptied of all session keys.
			require.False(t, f.repo.Has(sessions.KeyToken))
			require.False(t, f.repo.Has(sessions.KeyTokenExpiresAt))
			require.False(t, f.repo.Has(sessions.KeyUserData))
		})
	}
}

func TestRestoreWithTokenButNoExpiry(t *testing.T) {
	f := setupTestFixture(t)
	f.repo.Seed(sessions.KeyToken, testToken)

	f.flow.Restore(context.Background())

	require.False(t, f.projection.Snapshot().IsAuthenticated)
	require.False(t, f.repo.Has(sessions.KeyToken))
}

func TestRestoreWithCorruptProfile(t *testing.T) {
	f := setupTestFixture(t)
	f.repo.Seed(sessions.KeyToken, testToken)
	f.repo.Seed(sessions.KeyTokenExpiresAt, testNow.Add(time.Hour).Format(time.RFC3339))
	f.repo.Seed(sessions.KeyUserData, `{"externalId":"","email":"broken"}`)

	f.flow.Restore(context.Background())

	snap := f.projection.Snapshot()
	require.False(t, snap.IsAuthenticated)
	require.Empty(t, snap.Err)
	require.False(t, f.repo.Has(sessions.KeyToken), "inconsistent session is cleared")
	require.False(t, f.repo.Has(sessions.KeyUserData))
}

func TestRestoreWithStorageFailure(t *testing.T) {
	f := setupTestFixture(t)
	seedSession(t, f, testNow.Add(time.Hour))
	f.repo.GetErrs[sessions.KeyToken] = errors.New("io error")

	f.flow.Restore(context.Background())

	snap := f.projection.Snapshot()
	require.False(t, snap.IsAuthenticated)
	require.Empty(t, snap.Err, "storage failure resolves to signed-out, not an error")
}

func TestConsumePostLoginRedirect(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SetPostLoginRedirect(ctx, "/recipes/42"))

	require.Equal(t, "/recipes/42", f.flow.ConsumePostLoginRedirect(ctx))
	require.False(t, f.repo.Has(sessions.KeyPostLoginRedirect), "the hint is single-use")

	// Absent hint falls back to the root path.
	require.Equal(t, "/", f.flow.ConsumePostLoginRedirect(ctx))
}

func TestRestorePreservesStoredProfileExactly(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	payload, err := json.Marshal(&testProfile)
	require.NoError(t, err)
	f.repo.Seed(sessions.KeyToken, testToken)
	f.repo.Seed(sessions.KeyTokenExpiresAt, testNow.Add(time.Hour).Format(time.RFC3339))
	f.repo.Seed(sessions.KeyUserData, string(payload))

	f.flow.Restore(ctx)

	require.Equal(t, testProfile, *f.projection.Snapshot().User)
}
