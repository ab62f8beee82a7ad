package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ulya2402/Wisedebot/internal/config"
)

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := NewLogger(&config.LoggingConfig{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewLoggerStdoutDefault(t *testing.T) {
	logger, err := NewLogger(&config.LoggingConfig{Level: "debug", Output: "nonsense"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bot.log")

	logger, err := NewLogger(&config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "file",
		File:   config.FileConfig{Path: path, MaxSize: 1, MaxBackups: 1, MaxAge: 1},
	})
	require.NoError(t, err)

	logger.Info("rotation smoke test")
	_, err = os.Stat(path)
	assert.NoError(t, err, "log file created on first write")
}
