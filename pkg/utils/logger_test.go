package utils

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/codescope-io/codescope/pkg/models"
)

func TestNewLoggerDefaultsOnBadLevel(t *testing.T) {
	logger, err := NewLogger(models.LogConfig{Level: "nonsense"}, "codescope", "test")
	require.NoError(t, err)
	require.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestNewLoggerAttachesServiceFields(t *testing.T) {
	logger, err := NewLogger(models.LogConfig{Level: "debug", Format: "json"}, "codescope", "1.2.3")
	require.NoError(t, err)

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "codescope", entry["service"])
	require.Equal(t, "1.2.3", entry["version"])
	require.Equal(t, "hello", entry["message"])
	require.Equal(t, "info", entry["severity"])
}

func TestNewLoggerFileOutputCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "codescope.log")
	logger, err := NewLogger(models.LogConfig{
		Level:        "info",
		Output:       "file",
		FileLocation: path,
	}, "codescope", "test")
	require.NoError(t, err)
	logger.Info("warmup")

	require.FileExists(t, path)
}
