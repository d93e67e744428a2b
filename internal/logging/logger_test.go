package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromEnv(t *testing.T) {
	tests := map[string]log.Level{
		"debug": log.DebugLevel,
		"warn":  log.WarnLevel,
		"error": log.ErrorLevel,
		"":      log.InfoLevel,
		"loud":  log.InfoLevel,
		"fatal": log.FatalLevel,
	}
	for env, want := range tests {
		t.Run(env, func(t *testing.T) {
			t.Setenv("LA32RSTATS_LOG_LEVEL", env)
			assert.Equal(t, want, LevelFromEnv())
			assert.Equal(t, env == "debug", IsDebug())
		})
	}
}

func TestNewLoggerWithWriter(t *testing.T) {
	t.Setenv("LA32RSTATS_LOG_LEVEL", "")
	t.Setenv("LA32RSTATS_LOG_PREFIX", "")

	var buf bytes.Buffer
	lc := NewLoggerWithWriter(&buf)
	lc.Debug("hidden")
	lc.Info("shown", "words", 3)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "la32rstats")
	assert.Contains(t, buf.String(), "words=3")

	lc.ForceDebug()
	lc.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
	assert.NoError(t, lc.Close())
}

type closeRecorder struct {
	bytes.Buffer
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestCloseReleasesWriterOnce(t *testing.T) {
	var w closeRecorder
	lc := NewLoggerWithWriter(&w)
	assert.NoError(t, lc.Close())
	assert.NoError(t, lc.Close())
	assert.Equal(t, 1, w.closed)
}

func TestCloseKeepsStderr(t *testing.T) {
	t.Setenv(EnvToFile, "")
	lc := NewLogger()
	assert.Nil(t, lc.closer)
	assert.NoError(t, lc.Close())
	_, err := os.Stderr.Stat()
	assert.NoError(t, err)
}

func TestNewLoggerToFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvToFile, "1")
	t.Setenv(EnvLevel, "debug")

	lc := NewLogger()
	lc.Debug("to file", "section", ".text")
	require.NoError(t, lc.Close())

	matches, err := filepath.Glob("la32rstats-*-debug.log")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "section=.text")
}

func TestPrefixFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "")
	t.Setenv(EnvPrefix, "decoder ")
	var buf bytes.Buffer
	NewLoggerWithWriter(&buf).Info("hello")
	assert.Contains(t, buf.String(), "decoder")
}
