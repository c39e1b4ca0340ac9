package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvSiteID, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, defaultBaseURL, cfg.Upstream.BaseURL)
	assert.Equal(t, defaultCacheTTLSec, cfg.CacheTTLSec)
	assert.False(t, cfg.Upstream.Complete())
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
port: 9000
env: development
upstream:
  site_id: my-site
  token: tok-123
redis_url: redis://localhost:6379/2
cache_ttl_seconds: 30
allowed_origins:
  - "*.example.com"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "my-site", cfg.Upstream.SiteID)
	assert.Equal(t, "tok-123", cfg.Upstream.Token)
	assert.True(t, cfg.Upstream.Complete())
	assert.Equal(t, 30, cfg.CacheTTLSec)
	assert.Equal(t, []string{"*.example.com"}, cfg.AllowedOrigins)
}

func TestLoadLegacyFlatKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "api_token: legacy-tok\nsite_id: legacy-site\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "legacy-tok", cfg.Upstream.Token)
	assert.Equal(t, "legacy-site", cfg.Upstream.SiteID)
}

func TestLoadEnvFallback(t *testing.T) {
	t.Setenv(EnvToken, "env-tok")
	t.Setenv(EnvSiteID, "env-site")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-tok", cfg.Upstream.Token)
	assert.Equal(t, "env-site", cfg.Upstream.SiteID)
	assert.True(t, cfg.Upstream.Complete())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prot: 9000\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name    string
		content string
	}{
		{"bad env", "env: staging\n"},
		{"bad port", "port: 99999\n"},
		{"bad base url", "upstream:\n  base_url: ftp://x\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
