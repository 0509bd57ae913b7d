package credentials

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "nested", "tokens.json"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	expiresAt := time.Date(2026, 8, 24, 18, 30, 0, 0, time.UTC)
	rec := Record{
		OAuthToken:       "tok-0",
		OAuthTokenSecret: "sec-0",
		ExpiresAt:        expiresAt,
		Environment:      "sandbox",
	}
	require.NoError(t, store.Save("0", rec))

	got, err := store.Load("0", "sandbox")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok-0", got.OAuthToken)
	assert.Equal(t, "sec-0", got.OAuthTokenSecret)
	assert.True(t, got.ExpiresAt.Equal(expiresAt))
	assert.Equal(t, "sandbox", got.Environment)
}

func TestLoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Load("0", "sandbox")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoadMissingProfile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save("0", Record{
		OAuthToken:       "tok",
		OAuthTokenSecret: "sec",
		ExpiresAt:        time.Now().Add(time.Hour),
		Environment:      "sandbox",
	}))

	got, err := store.Load("1", "sandbox")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoadEnvironmentMismatch(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save("0", Record{
		OAuthToken:       "tok",
		OAuthTokenSecret: "sec",
		ExpiresAt:        time.Now().Add(time.Hour),
		Environment:      "sandbox",
	}))

	got, err := store.Load("0", "production")
	require.NoError(t, err)
	assert.Nil(t, got, "a well-formed record in the wrong environment must read as absent")
}

func TestSaveDoesNotDisturbOtherProfiles(t *testing.T) {
	store := newTestStore(t)

	expires0 := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save("0", Record{
		OAuthToken:       "tok-0",
		OAuthTokenSecret: "sec-0",
		ExpiresAt:        expires0,
		Environment:      "sandbox",
	}))
	require.NoError(t, store.Save("1", Record{
		OAuthToken:       "tok-1",
		OAuthTokenSecret: "sec-1",
		ExpiresAt:        time.Now().Add(time.Hour),
		Environment:      "production",
	}))

	// Overwrite profile 1 again; profile 0 must be untouched.
	require.NoError(t, store.Save("1", Record{
		OAuthToken:       "tok-1b",
		OAuthTokenSecret: "sec-1b",
		ExpiresAt:        time.Now().Add(2 * time.Hour),
		Environment:      "production",
	}))

	got0, err := store.Load("0", "sandbox")
	require.NoError(t, err)
	require.NotNil(t, got0)
	assert.Equal(t, "tok-0", got0.OAuthToken)
	assert.Equal(t, "sec-0", got0.OAuthTokenSecret)
	assert.True(t, got0.ExpiresAt.Equal(expires0))

	got1, err := store.Load("1", "production")
	require.NoError(t, err)
	require.NotNil(t, got1)
	assert.Equal(t, "tok-1b", got1.OAuthToken)
}

func TestSaveRestrictsPermissions(t *testing.T) {
	store := newTestStore(t)
	rec := Record{
		OAuthToken:       "tok",
		OAuthTokenSecret: "sec",
		ExpiresAt:        time.Now().Add(time.Hour),
		Environment:      "sandbox",
	}
	require.NoError(t, store.Save("0", rec))

	info, err := os.Stat(store.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// Rewrites must preserve the restriction.
	require.NoError(t, store.Save("0", rec))
	info, err = os.Stat(store.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadCorruptDocument(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.path), 0700))
	require.NoError(t, os.WriteFile(store.path, []byte("{not json"), 0600))

	_, err := store.Load("0", "sandbox")
	assert.Error(t, err, "structurally invalid JSON is the one load error")
}

func TestLoadMalformedRecordIsAbsent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.path), 0700))

	doc := `{
  "0": {"oauth_token": "tok", "environment": "sandbox"},
  "1": {"oauth_token": "tok", "oauth_token_secret": "sec", "expires_at": "yesterday-ish", "environment": "sandbox"}
}`
	require.NoError(t, os.WriteFile(store.path, []byte(doc), 0600))

	got, err := store.Load("0", "sandbox")
	require.NoError(t, err)
	assert.Nil(t, got, "missing fields read as absent, not as an error")

	got, err = store.Load("1", "sandbox")
	require.NoError(t, err)
	assert.Nil(t, got, "an unparseable timestamp reads as absent")
}
