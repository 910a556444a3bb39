package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagestore.log")

	l, err := New(Config{Level: "debug", Format: "json", OutputFile: path})
	require.NoError(t, err)
	l.Debug("page read")
	l.Info("page file opened")
	require.NoError(t, Sync(l))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	require.Equal(t, "INFO", entry["level"])
	require.Equal(t, "page file opened", entry["msg"])
	require.Equal(t, ServiceName, entry["service"])
	require.Contains(t, entry, "caller")
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagestore.log")

	l, err := New(Config{Level: "chatty", Format: "console", OutputFile: path})
	require.NoError(t, err)
	l.Debug("hidden")
	l.Warn("shown")
	require.NoError(t, Sync(l))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "hidden")
	require.Contains(t, string(data), "shown")
	require.Contains(t, string(data), "WARN")
}

func TestUnwritableOutputFile(t *testing.T) {
	_, err := New(Config{OutputFile: filepath.Join(t.TempDir(), "no", "such", "dir.log")})
	require.Error(t, err)
}
