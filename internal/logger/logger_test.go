package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopedLevelIsIndependentOfGlobal(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout); SetLevel("info") })

	SetLevel("debug")
	engine := Scoped("hyperopt.tpe", slog.LevelWarn)
	engine.Info("noisy")
	engine.Warn("kept")
	Debugf("global debug %d", 1)

	out := buf.String()
	assert.NotContains(t, out, "noisy")
	assert.Contains(t, out, "kept")
	assert.Contains(t, out, "component=hyperopt.tpe")
	assert.Contains(t, out, "global debug 1")
}

func TestSetLevelFiltersGlobal(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout); SetLevel("info") })

	SetLevel("warning")
	Infof("hidden")
	Warnf("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestTeeToFile(t *testing.T) {
	t.Cleanup(func() { SetOutput(os.Stdout) })
	path := filepath.Join(t.TempDir(), "logs", "run.log")

	closer, err := TeeToFile(FileOptions{Path: path, MaxSizeMB: 1})
	require.NoError(t, err)
	require.NotNil(t, closer)
	Errorf("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")

	closer, err = TeeToFile(FileOptions{})
	assert.NoError(t, err)
	assert.Nil(t, closer)
}
