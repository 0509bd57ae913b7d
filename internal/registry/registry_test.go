package registry

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvcrn/etrade-mcp/internal/config"
	"github.com/dvcrn/etrade-mcp/internal/credentials"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	profiles := []config.Profile{
		{ID: "0", ConsumerKey: "ck0", ConsumerSecret: "cs0", Environment: config.Sandbox},
		{ID: "1", Label: "Family", ConsumerKey: "ck1", ConsumerSecret: "cs1", Environment: config.Production},
	}
	store := credentials.NewStore(filepath.Join(t.TempDir(), "tokens.json"))
	return New(profiles, store, zerolog.Nop())
}

func TestGetKnownProfile(t *testing.T) {
	reg := newTestRegistry(t)

	entry, err := reg.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "1", entry.Profile.ID)
	assert.Equal(t, "Family", entry.Profile.Label)
	assert.NotNil(t, entry.Manager)
	assert.NotNil(t, entry.Client)
}

func TestGetUnknownProfileListsAvailable(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Get("9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile 9 not found")
	assert.Contains(t, err.Error(), "available profiles: 0, 1")
}

func TestEntriesOrderedByProfileID(t *testing.T) {
	reg := newTestRegistry(t)

	assert.Equal(t, []string{"0", "1"}, reg.ProfileIDs())

	entries := reg.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "0", entries[0].Profile.ID)
	assert.Equal(t, "1", entries[1].Profile.ID)
}
