package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterFormatsPlainLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.Info("event", "created")
	l.LogSecurity("ACCESS", "confidential event denied")

	out := buf.String()
	assert.Contains(t, out, "INFO  [EVENT     ] created")
	assert.Contains(t, out, "WARN  [SECURITY  ] [ACCESS] confidential event denied")
	assert.Contains(t, out, "logger_test.go")
}

func TestSetLevelDropsLowerEntries(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	l.SetLevel("warn")

	l.Debug("APP", "noise")
	l.Info("APP", "noise")
	l.Error("APP", "kept")

	assert.NotContains(t, buf.String(), "noise")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewLoggerWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger("calendar-test", dir)
	l.LogDatabase("INSERT", "events", "ok")
	l.Close()

	files, err := filepath.Glob(filepath.Join(dir, "calendar-test-*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		var entry LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry.Category == "DATABASE" {
			found = true
			assert.Equal(t, "[INSERT] events - ok", entry.Message)
			assert.Equal(t, "INFO", entry.Level)
		}
	}
	assert.True(t, found)
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel(" warning ")
	assert.True(t, ok)
	assert.Equal(t, WARN, lvl)

	lvl, ok = ParseLevel("error")
	assert.True(t, ok)
	assert.Equal(t, "ERROR", lvl.String())

	_, ok = ParseLevel("verbose")
	assert.False(t, ok)
}

func TestHelpersReportCallerOutsideLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.LogSecurity("OAUTH", "state reused")

	assert.Contains(t, buf.String(), "(logger_test.go:")
	assert.NotContains(t, buf.String(), "(logger.go:")
}
