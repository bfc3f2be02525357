package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := NewLogger(LogConfig{Level: "warn", Stderr: &buf})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogger_TruncatesPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixy.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0644))

	var buf bytes.Buffer
	logger, closer, err := NewLogger(LogConfig{Level: "info", File: path, Stderr: &buf})
	require.NoError(t, err)

	logger.Info("fresh run")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "previous run")
	assert.Contains(t, string(data), "fresh run")
	assert.Contains(t, buf.String(), "fresh run")
}

func TestNewLogger_UnwritableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "mixy.log")
	_, _, err := NewLogger(LogConfig{File: path, Stderr: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"bogus", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}
