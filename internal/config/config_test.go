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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
dev_mode_bypass: true
db:
  name: docflow
auth:
  okta_domain: "https://example.okta.com/oauth2/default/ "
audit:
  webhook_url: http://audit.local/entries
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.okta.com/oauth2/default", cfg.Auth.OktaDomain)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 4, cfg.Engine.BackfillConcurrency)
	assert.Equal(t, "admin", cfg.DevActor.Role)
	assert.Equal(t, "http://audit.local/entries", cfg.Audit.WebhookURL)
	assert.Equal(t, "postgres://:@localhost:5432/docflow?sslmode=disable", cfg.DSN())
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "dev_mode_bypass: true\n")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ENGINE_BACKFILL_CONCURRENCY", "8")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Engine.BackfillConcurrency)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing issuer", "db:\n  name: x\n"},
		{"bad concurrency", "dev_mode_bypass: true\nengine:\n  backfill_concurrency: 0\n"},
		{"bad dev role", "dev_mode_bypass: true\ndev_actor:\n  role: root\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
