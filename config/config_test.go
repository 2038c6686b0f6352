package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 25*time.Minute, cfg.FocusDuration)
	assert.Equal(t, 5*time.Minute, cfg.BreakDuration)
	assert.Equal(t, -1, cfg.ViewPort)
	assert.NoError(t, cfg.Validate())
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "custom.yaml", `
server_url: https://pom.example.com
log_level: debug
focus_duration: 50m
relay_urls:
  - wss://relay-a.example.com/relay
`)
	writeFile(t, dir, ".env", "POMCHAT_LOG_LEVEL=warn\n")
	// godotenv sets the variable process-wide; restore it after the test
	t.Setenv("POMCHAT_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("POMCHAT_LOG_LEVEL"))
	t.Setenv("POMCHAT_BREAK_DURATION", "10m")
	t.Setenv("POMCHAT_RELAY_URLS", "wss://r1, ,wss://r2")
	t.Setenv("POMCHAT_NOTIFY", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://pom.example.com", cfg.ServerURL)
	assert.Equal(t, 50*time.Minute, cfg.FocusDuration)
	assert.Equal(t, 10*time.Minute, cfg.BreakDuration)
	assert.Equal(t, []string{"wss://r1", "wss://r2"}, cfg.RelayURLs)
	assert.False(t, cfg.Notify)
	assert.Equal(t, zerolog.WarnLevel, cfg.Level())
}

func TestLoadDefaultFileIsOptional(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().ServerURL, cfg.ServerURL)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.yaml", "server_url: [unterminated\n")
	_, err = Load(bad)
	assert.Error(t, err)

	t.Setenv("POMCHAT_POLL_INTERVAL", "soon")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.PollInterval = 0
	assert.Error(t, cfg.Validate())
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(" , "))
	assert.Equal(t, []string{"a", "b"}, SplitList("a,b"))
}
