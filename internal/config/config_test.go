package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvNumberedProfiles(t *testing.T) {
	t.Setenv("ETRADE_0_CONSUMER_KEY", "key0")
	t.Setenv("ETRADE_0_CONSUMER_SECRET", "secret0")
	t.Setenv("ETRADE_1_CONSUMER_KEY", "key1")
	t.Setenv("ETRADE_1_CONSUMER_SECRET", "secret1")
	t.Setenv("ETRADE_1_ENVIRONMENT", "production")
	t.Setenv("ETRADE_1_LABEL", "Family")
	t.Setenv("ETRADE_1_NO_BROWSER", "1")

	profiles, err := FromEnv()
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, "0", profiles[0].ID)
	assert.Equal(t, "key0", profiles[0].ConsumerKey)
	assert.Equal(t, Sandbox, profiles[0].Environment)
	assert.False(t, profiles[0].NoBrowser)

	assert.Equal(t, "1", profiles[1].ID)
	assert.Equal(t, Production, profiles[1].Environment)
	assert.Equal(t, "Family", profiles[1].Label)
	assert.True(t, profiles[1].NoBrowser)
}

func TestFromEnvLegacyFallback(t *testing.T) {
	t.Setenv("ETRADE_CONSUMER_KEY", "legacy-key")
	t.Setenv("ETRADE_CONSUMER_SECRET", "legacy-secret")
	t.Setenv("ETRADE_ENVIRONMENT", "production")

	profiles, err := FromEnv()
	require.NoError(t, err)
	require.Len(t, profiles, 1)

	assert.Equal(t, "0", profiles[0].ID)
	assert.Equal(t, "legacy-key", profiles[0].ConsumerKey)
	assert.Equal(t, "legacy-secret", profiles[0].ConsumerSecret)
	assert.Equal(t, Production, profiles[0].Environment)
}

func TestFromEnvNumberedWinsOverLegacy(t *testing.T) {
	t.Setenv("ETRADE_CONSUMER_KEY", "legacy-key")
	t.Setenv("ETRADE_CONSUMER_SECRET", "legacy-secret")
	t.Setenv("ETRADE_0_CONSUMER_KEY", "key0")
	t.Setenv("ETRADE_0_CONSUMER_SECRET", "secret0")

	profiles, err := FromEnv()
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "key0", profiles[0].ConsumerKey)
}

func TestFromEnvMissingSecret(t *testing.T) {
	t.Setenv("ETRADE_0_CONSUMER_KEY", "key0")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "consumer secret")
}

func TestFromEnvInvalidEnvironment(t *testing.T) {
	t.Setenv("ETRADE_0_CONSUMER_KEY", "key0")
	t.Setenv("ETRADE_0_CONSUMER_SECRET", "secret0")
	t.Setenv("ETRADE_0_ENVIRONMENT", "staging")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
}

func TestFromEnvIgnoresNonProfileVariables(t *testing.T) {
	t.Setenv("ETRADE_0_CONSUMER_KEY", "key0")
	t.Setenv("ETRADE_0_CONSUMER_SECRET", "secret0")
	// Does not match the numbered-profile pattern.
	t.Setenv("ETRADE_SANDBOX_CONSUMER_KEY", "stray")

	profiles, err := FromEnv()
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "0", profiles[0].ID)
}

func TestParseEnvironment(t *testing.T) {
	env, err := ParseEnvironment("")
	require.NoError(t, err)
	assert.Equal(t, Sandbox, env)

	env, err = ParseEnvironment("production")
	require.NoError(t, err)
	assert.Equal(t, Production, env)

	_, err = ParseEnvironment("prod")
	assert.Error(t, err)
}

func TestEnvironmentBaseURL(t *testing.T) {
	assert.Equal(t, "https://apisb.etrade.com", Sandbox.BaseURL())
	assert.Equal(t, "https://api.etrade.com", Production.BaseURL())
}
