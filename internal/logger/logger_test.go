package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreLogger undoes a test's Configure calls so the package globals do
// not leak between tests.
func restoreLogger(t *testing.T) {
	t.Helper()
	origLogger := Logger
	origOutput := output
	t.Cleanup(func() {
		Logger = origLogger
		output = origOutput
	})
}

func TestConfigureLevelPrecedence(t *testing.T) {
	restoreLogger(t)
	t.Setenv("PSITEST_LOG_LEVEL", "warn")

	// An explicit flag wins over the environment.
	require.NoError(t, Configure("debug", ""))
	assert.Equal(t, log.DebugLevel, Logger.GetLevel())

	// An empty flag falls back to the environment.
	require.NoError(t, Configure("", ""))
	assert.Equal(t, log.WarnLevel, Logger.GetLevel())
}

func TestConfigureDefaultLevel(t *testing.T) {
	restoreLogger(t)
	t.Setenv("PSITEST_LOG_LEVEL", "")

	require.NoError(t, Configure("", ""))
	assert.Equal(t, log.InfoLevel, Logger.GetLevel())
}

func TestConfigureLogFile(t *testing.T) {
	restoreLogger(t)
	path := filepath.Join(t.TempDir(), "trace.log")

	require.NoError(t, Configure("debug", path))
	Debug("tracing child process", "command", "true")
	Info("tracing session")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tracing child process")
	assert.Contains(t, string(data), "command=true")
	assert.Contains(t, string(data), "tracing session")
}

func TestConfigureBadLogFile(t *testing.T) {
	restoreLogger(t)
	before := Logger

	err := Configure("debug", filepath.Join(t.TempDir(), "absent", "trace.log"))
	require.Error(t, err)
	// A failed Configure leaves the previous logger in place.
	assert.Same(t, before, Logger)
}

func TestStyledLoggerSharesConfiguredOutput(t *testing.T) {
	restoreLogger(t)
	path := filepath.Join(t.TempDir(), "styled.log")
	require.NoError(t, Configure("debug", path))

	styled := NewStyledLogger("Session")
	styled.Debug("interpreter started", "pid", 42)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "interpreter started")
	assert.Contains(t, string(data), "Session")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"WARN", log.WarnLevel},
		{"nonsense", log.InfoLevel},
		{"", log.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), "parseLogLevel(%q)", tt.in)
	}
}
