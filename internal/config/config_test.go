package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Limits.Window)
	assert.Equal(t, DefaultTenantLimitStandard, cfg.Limits.TenantStandard)
	assert.Equal(t, time.Hour, cfg.Limits.HaltDuration)
	assert.Equal(t, "anthropic", cfg.Upstream.Provider)
	assert.Equal(t, "es", cfg.Grounding.Language)
}

func TestLoadYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  port: 9191
limits:
  credential: 3
  tenant_premium: 500
upstream:
  provider: bedrock
  region: eu-west-1
  model_id: anthropic.claude-3-haiku
grounding:
  language: en
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Limits.Credential)
	assert.Equal(t, 500, cfg.Limits.TenantPremium)
	assert.Equal(t, "bedrock", cfg.Upstream.Provider)
	assert.Equal(t, "en", cfg.Grounding.Language)
	// Untouched fields still get defaults.
	assert.Equal(t, DefaultDeviceLimit, cfg.Limits.Device)
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("upstream:\n  provider: mistral\n"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateBedrockNeedsRegion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("upstream:\n  provider: bedrock\n"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesSecrets(t *testing.T) {
	t.Setenv("UPSTREAM_API_KEY", "sk-test-123")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test-123", cfg.Upstream.APIKey)
	assert.Equal(t, "redis://localhost:6379/2", cfg.Redis.URL)
}
