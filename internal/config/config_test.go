package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: debug
storage:
  type: local
  local_path: `+filepath.Join(t.TempDir(), "uploads")+`
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, 90*time.Second, cfg.AI.Timeout())
	assert.Equal(t, 60, cfg.Assessment.QuestionCount)
	assert.Equal(t, 3600, cfg.Assessment.DurationSeconds())
	assert.True(t, cfg.Assessment.WebcamRequired)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.DirExists(t, cfg.Storage.LocalPath)
}

func TestLoadConfig_EnvOverridesSecrets(t *testing.T) {
	dir := writeConfig(t, `
storage:
  type: local
  local_path: `+filepath.Join(t.TempDir(), "uploads")+`
`)
	t.Setenv("RAZORPAY_KEY_SECRET", "rzp_secret")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "rzp_secret", cfg.Payment.KeySecret)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
}

func TestLoadConfig_ReleaseRequiresStrongSecret(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
jwt:
  secret: short
`)

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret is too short")
}

func TestLoadConfig_RejectsUnknownProvider(t *testing.T) {
	dir := writeConfig(t, `
ai:
  provider: anthropic
`)

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ai.provider")
}
