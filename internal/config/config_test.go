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

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "", cfg.Database.URL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Deck.UseJokers)
	assert.Equal(t, 2*time.Hour, cfg.Session.IdleTTL)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_addr: ":9999"
  request_timeout: 2s
logging:
  level: debug
  format: console
deck:
  use_jokers: false
session:
  idle_ttl: 30m
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
	assert.Equal(t, 2*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Deck.UseJokers)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  request_timeout: -1s
`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
