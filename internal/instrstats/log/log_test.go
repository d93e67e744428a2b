package log

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(&buf, false)
	handler.SetOutput(&buf)
	assert.True(t, Initialized())

	cleaned := false
	func() {
		defer RecoverPanic("worker", func() { cleaned = true })
		panic("bad section")
	}()

	assert.True(t, cleaned)
	assert.Contains(t, buf.String(), "Panic in worker")
	assert.Contains(t, buf.String(), "bad section")
}

func TestRecoverPanicNoPanic(t *testing.T) {
	called := false
	func() {
		defer RecoverPanic("quiet", func() { called = true })
	}()
	assert.False(t, called)
}

func TestSetupDebugLowersLevel(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(&buf, false)
	handler.SetOutput(&buf)
	t.Cleanup(func() { handler.SetLevel(charmlog.InfoLevel) })

	slog.Debug("hidden section")
	assert.NotContains(t, buf.String(), "hidden section")

	// A second call keeps the first handler but honors debug
	SetupWriter(io.Discard, true)
	slog.Debug("visible section", "index", 2)
	assert.Contains(t, buf.String(), "visible section")
	assert.Contains(t, buf.String(), "index=2")
}
