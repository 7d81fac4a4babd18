package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "text to stdout",
			cfg:  Config{Level: LevelInfo, Format: FormatText, Output: "stdout"},
		},
		{
			name: "json to stderr",
			cfg:  Config{Level: LevelDebug, Format: FormatJSON, Output: "stderr"},
		},
		{
			name: "unknown level falls back to info",
			cfg:  Config{Level: "bogus", Format: FormatText, Output: "stdout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hostscan.log")

	logger, err := New(Config{Level: LevelInfo, Format: FormatJSON, Output: path})
	require.NoError(t, err)

	logger.Info("scan started", "hosts", 254)
	assert.FileExists(t, path)
}

func TestDerivedLoggers(t *testing.T) {
	logger := NewDefault()

	assert.NotNil(t, logger.WithComponent("scanner"))
	assert.NotNil(t, logger.WithHost("10.0.0.1"))
	assert.NotNil(t, logger.WithProbe("ping"))
	assert.NotNil(t, logger.WithFields("generation", "abc"))
}

func TestDefaultIsUsable(t *testing.T) {
	assert.NotNil(t, Default())

	// Package-level helpers must not panic.
	Debug("debug message")
	Info("info message", "key", "value")
	Warn("warn message")
	DebugProbe("probe message", "ping", "10.0.0.1")
}
