package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config directory at a temp dir so tests never
// touch the user's real files.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.esios.ree.es", cfg.BaseURL)
	assert.Equal(t, "Europe/Madrid", cfg.Timezone)
	assert.Equal(t, 30, cfg.TimeoutSeconds)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 48, cfg.Cache.RecentTTLHours)
	assert.Equal(t, 7, cfg.Cache.MetaTTLDays)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("ESIOS_API_KEY", "env-key")
	t.Setenv("ESIOS_TIMEZONE", "UTC")
	t.Setenv("ESIOS_TIMEOUT", "60")
	t.Setenv("ESIOS_CACHE_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Token)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 60, cfg.TimeoutSeconds)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadIgnoresUnknownEnvVars(t *testing.T) {
	isolate(t)
	t.Setenv("ESIOS_SOMETHING_ELSE", "junk")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Madrid", cfg.Timezone)
}

func TestSetGetRoundTrip(t *testing.T) {
	dir := isolate(t)

	require.NoError(t, Set("timezone", "UTC"))
	require.NoError(t, Set("token", "file-token"))

	got, err := Get("timezone")
	require.NoError(t, err)
	assert.Equal(t, "UTC", got)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "file-token", cfg.Token)

	// The file holds secrets, so it is written private.
	info, err := os.Stat(filepath.Join(dir, "esios", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSetRejectsUnknownKey(t *testing.T) {
	isolate(t)
	assert.Error(t, Set("no_such_key", "x"))
}

func TestGetMissingKey(t *testing.T) {
	isolate(t)
	_, err := Get("timezone")
	assert.Error(t, err)
}

func TestEnvBeatsFile(t *testing.T) {
	isolate(t)
	require.NoError(t, Set("timezone", "UTC"))
	t.Setenv("ESIOS_TIMEZONE", "Europe/Lisbon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Lisbon", cfg.Timezone)
}

func TestResolveTokenPrecedence(t *testing.T) {
	cfg := &Config{Token: "from-file"}

	t.Setenv("ESIOS_API_KEY", "")
	assert.Equal(t, "from-file", ResolveToken("", cfg))

	t.Setenv("ESIOS_API_KEY", "from-env")
	assert.Equal(t, "from-env", ResolveToken("", cfg))

	assert.Equal(t, "from-flag", ResolveToken("from-flag", cfg))
}

func TestPathUsesXDG(t *testing.T) {
	dir := isolate(t)
	assert.Equal(t, filepath.Join(dir, "esios", "config.yaml"), Path())
}
