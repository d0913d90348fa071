package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
http_addr: ":8080"
default_credential:
  client_id: ${CLIENT_ID}
  client_secret: secret
  secret_token: token
database:
  host: localhost
  port: 5432
  user: rtms
  database: rtms
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestInitialize_LoadsAndValidates(t *testing.T) {
	t.Setenv("CLIENT_ID", "client-123")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", baseYAML)

	cfg, err := Initialize(context.Background(), path, "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "client-123", cfg.DefaultCredential.ClientID)
	assert.Equal(t, LogLevelOff, cfg.LogLevel)
	assert.Equal(t, DefaultStreamHistorySize, cfg.StreamHistorySize)
	assert.True(t, cfg.MediaMask != 0)
}

func TestInitialize_MergesOverride(t *testing.T) {
	t.Setenv("CLIENT_ID", "client-123")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", baseYAML)
	overridePath := writeFile(t, dir, "override.yaml", `
http_addr: ":9090"
log_level: debug
`)

	cfg, err := Initialize(context.Background(), path, overridePath)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, LogLevelDebug, cfg.LogLevel)
}

func TestInitialize_MissingFile(t *testing.T) {
	_, err := Initialize(context.Background(), "/nonexistent/config.yaml", "")
	require.Error(t, err)
}

func TestInitialize_MissingCredentialFails(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
http_addr: ":8080"
database:
  host: localhost
  port: 5432
  user: rtms
  database: rtms
`)

	_, err := Initialize(context.Background(), path, "")
	require.Error(t, err)
}
