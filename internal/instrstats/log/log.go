// Package log routes the process-wide slog logger through
// charmbracelet/log and recovers panics at goroutine boundaries.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

var (
	mu      sync.Mutex
	handler *charmlog.Logger
)

// Setup installs the default slog logger on stderr. Only the first call
// installs a handler; later calls may still lower the level to debug.
func Setup(debug bool) {
	SetupWriter(os.Stderr, debug)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, debug bool) {
	mu.Lock()
	defer mu.Unlock()

	if handler == nil {
		handler = charmlog.NewWithOptions(w, charmlog.Options{
			Level:        charmlog.InfoLevel,
			ReportCaller: debug,
		})
		slog.SetDefault(slog.New(handler))
	}
	if debug {
		handler.SetLevel(charmlog.DebugLevel)
	}
}

func Initialized() bool {
	mu.Lock()
	defer mu.Unlock()
	return handler != nil
}

// RecoverPanic must be deferred. It logs a panic with its stack and runs
// cleanup; the panic is not re-raised.
func RecoverPanic(name string, cleanup func()) {
	r := recover()
	if r == nil {
		return
	}
	if Initialized() {
		slog.Error(fmt.Sprintf("Panic in %s", name),
			"panic", r,
			"stack", string(debug.Stack()))
	}
	if cleanup != nil {
		cleanup()
	}
}
