package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFrom_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cyberforge", "config.json")

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultProfileName, cfg.ActiveProfile)
	assert.Equal(t, DefaultAPIURL, cfg.GetAPIURL())
	assert.Equal(t, DefaultWSURL, cfg.GetWSURL())
	assert.Equal(t, DefaultRequestTimeout, cfg.Current().RequestTimeout())
	assert.Equal(t, AssistantBackend, cfg.Current().AssistantTransport())

	_, err = os.Stat(path)
	assert.NoError(t, err, "default config should be written on first load")
}

func TestLoadConfigFrom_RoundTripsProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)

	cfg.Profiles["lab"] = Profile{
		APIURL:                "https://lab.example:9000/",
		RequestTimeoutSeconds: 30,
		RateLimit:             2,
		Assistant:             AssistantProfile{Transport: "DIRECT", Model: "gpt-4o-mini"},
	}
	cfg.ActiveProfile = "lab"
	require.NoError(t, cfg.Save())

	reloaded, err := LoadConfigFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "lab", reloaded.ActiveProfile)
	assert.Equal(t, "https://lab.example:9000", reloaded.GetAPIURL())
	assert.Equal(t, "wss://lab.example:9000", reloaded.GetWSURL(), "ws url derives from api url")
	assert.Equal(t, 30*time.Second, reloaded.Current().RequestTimeout())
	assert.Equal(t, AssistantDirect, reloaded.Current().AssistantTransport())
	assert.Equal(t, []string{"default", "lab"}, reloaded.ProfileNames())
}

func TestLoadConfigFrom_MissingActiveFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{"profiles":{"beta":{"api_url":"http://b:1"},"alpha":{"api_url":"http://a:1"}},"active_profile":"gone"}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "alpha", cfg.ActiveProfile)
	assert.Equal(t, "http://a:1", cfg.GetAPIURL())
}

func TestLoadConfigFrom_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadConfigFrom(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfigFrom_NoProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"profiles":{},"active_profile":""}`), 0o600))

	_, err := LoadConfigFrom(path)
	assert.ErrorIs(t, err, ErrNoProfiles)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CYBERFORGE_API_URL", "http://env-host:8008")
	t.Setenv("CYBERFORGE_LOG_LEVEL", "debug")

	cfg, err := LoadConfigFrom(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	assert.Equal(t, "http://env-host:8008", cfg.GetAPIURL())
	assert.Equal(t, "debug", cfg.LogConfig().Level)
	assert.Equal(t, DefaultAPIURL, cfg.Profiles[DefaultProfileName].APIURL, "env must not leak into stored profiles")
}

func TestSelectProfile(t *testing.T) {
	cfg, err := LoadConfigFrom(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	err = cfg.SelectProfile("missing")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	cfg.Profiles["other"] = Profile{APIURL: "http://other:1"}
	require.NoError(t, cfg.SelectProfile("other"))
	assert.Equal(t, "http://other:1", cfg.GetAPIURL())
}

func TestHomeDir_UsesEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CYBERFORGE_HOME", dir)

	home, err := HomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".cyberforge"), home)

	path, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".cyberforge", "config.json"), path)
}
