package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1000, cfg.MaxLogs)
	assert.Equal(t, "headers-only", cfg.CaptureLevel)
	assert.True(t, cfg.Persist.Enabled)
	assert.True(t, cfg.Persist.Refresh())
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sniffer.yaml")
	yaml := `
maxLogs: 50
captureLevel: full
maskFields:
  - ssn
  - creditCard
persist:
  enabled: true
  path: /tmp/capture.json
  writeIntervalMs: 2000
  writeDebounceMs: 25
  writeBatchSize: 10
  refreshOnStartup: false
admin:
  addr: 127.0.0.1:9999
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.MaxLogs)
	assert.Equal(t, "full", cfg.CaptureLevel)
	assert.Equal(t, []string{"ssn", "creditCard"}, cfg.MaskFields)
	assert.Equal(t, 2*time.Second, cfg.Persist.WriteInterval())
	assert.Equal(t, 25*time.Millisecond, cfg.Persist.WriteDebounce())
	assert.Equal(t, 10, cfg.Persist.WriteBatchSize)
	assert.False(t, cfg.Persist.Refresh())
	assert.Equal(t, "127.0.0.1:9999", cfg.Admin.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sniffer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxLogs: 5\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxLogs)
	assert.Equal(t, "headers-only", cfg.CaptureLevel)
	assert.Equal(t, 5000, cfg.Persist.WriteIntervalMs)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxLogs: [unterminated"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.CaptureLevel = "everything"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Persist.Path = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Persist.Enabled = false
	cfg.Persist.Path = ""
	assert.NoError(t, cfg.Validate(), "path not required when persistence is off")

	cfg = Default()
	cfg.Persist.WriteBatchSize = -1
	assert.Error(t, cfg.Validate())
}
