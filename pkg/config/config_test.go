package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pagestore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
	require.Equal(t, uint32(0o644), cfg.Storage.FileMode)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
  format: json
telemetry:
  enabled: true
  service_name: pagestore-ci
  prometheus_port: 9999
storage:
  sync_writes: true
  file_mode: 0o600
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Logger.Level)
	require.Equal(t, "json", cfg.Logger.Format)
	require.Equal(t, "stderr", cfg.Logger.OutputFile, "unset keys keep their defaults")
	require.True(t, cfg.Telemetry.Enabled)
	require.Equal(t, "pagestore-ci", cfg.Telemetry.ServiceName)
	require.Equal(t, 9999, cfg.Telemetry.PrometheusPort)
	require.Equal(t, 1.0, cfg.Telemetry.TraceSampleRatio)
	require.True(t, cfg.Storage.SyncWrites)
	require.Equal(t, uint32(0o600), cfg.Storage.FileMode)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "logger: [not, a, map]"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "logger:\n  format: xml\n"))
	require.ErrorContains(t, err, "logger.format")

	_, err = Load(writeConfig(t, "telemetry:\n  prometheus_port: 70000\n"))
	require.ErrorContains(t, err, "prometheus_port")

	_, err = Load(writeConfig(t, "telemetry:\n  enabled: true\n  service_name: \"\"\n"))
	require.ErrorContains(t, err, "service_name")
}
