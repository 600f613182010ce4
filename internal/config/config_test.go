package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func allEnv(t *testing.T) {
	unsetEnv(t, EnvLiveAPIKey, EnvScaleAPIKey, EnvProject, EnvBaseURL, EnvPercentile)
}

func TestLoadDefaultsWhenFilesMissing(t *testing.T) {
	allEnv(t)
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "annotaudit.yaml"), filepath.Join(dir, ".env"), false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadExplicitMissingConfigFails(t *testing.T) {
	allEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "", true)
	assert.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	allEnv(t)
	path := filepath.Join(t.TempDir(), "annotaudit.yaml")
	body := `
api:
  project: Faces
  status: completed
  page_size: 50
  timeout: 5s
rules:
  percentile: 90
output:
  path: out/issues.json
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path, "", true)
	require.NoError(t, err)
	assert.Equal(t, "Faces", cfg.API.Project)
	assert.Equal(t, "completed", cfg.API.Status)
	assert.Equal(t, 50, cfg.API.PageSize)
	assert.Equal(t, 90.0, cfg.Rules.Percentile)
	assert.Equal(t, "non_visible_face", cfg.Rules.ExemptLabel)
	assert.Equal(t, "out/issues.json", cfg.Output.Path)
	assert.Equal(t, "https://api.scale.com/v1", cfg.API.BaseURL)

	d, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	allEnv(t)
	path := filepath.Join(t.TempDir(), "annotaudit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  project: Faces\n"), 0o644))

	t.Setenv(EnvProject, "Signs")
	t.Setenv(EnvPercentile, "99")
	t.Setenv(EnvScaleAPIKey, "scale_key")
	t.Setenv(EnvLiveAPIKey, "live_key")

	cfg, err := Load(path, "", true)
	require.NoError(t, err)
	assert.Equal(t, "Signs", cfg.API.Project)
	assert.Equal(t, 99.0, cfg.Rules.Percentile)
	assert.Equal(t, "live_key", cfg.API.Key)
}

func TestLoadDotenv(t *testing.T) {
	allEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LIVE_API_KEY=from_dotenv\n"), 0o644))

	cfg, err := Load("", envFile, false)
	require.NoError(t, err)
	assert.Equal(t, "from_dotenv", cfg.API.Key)
}

func TestLoadBadPercentileEnv(t *testing.T) {
	allEnv(t)
	t.Setenv(EnvPercentile, "high")
	_, err := Load("", "", false)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"zero percentile": func(c *Config) { c.Rules.Percentile = 0 },
		"over 100":        func(c *Config) { c.Rules.Percentile = 101 },
		"zero page size":  func(c *Config) { c.API.PageSize = 0 },
		"zero rate":       func(c *Config) { c.API.RequestsPerSecond = 0 },
		"bad timeout":     func(c *Config) { c.API.Timeout = "soon" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
