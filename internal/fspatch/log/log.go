// Package log sets up the process-wide slog logger used by the command
// layer and recovers panics into it.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
)

// Setup installs the default slog handler on stderr. Only the first call
// has an effect.
func Setup(debug bool) {
	SetupWriter(os.Stderr, debug)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, debug bool) {
	initOnce.Do(func() {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}

		handler := slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: debug,
		})

		slog.SetDefault(slog.New(handler))
		initialized.Store(true)
	})
}

func Initialized() bool {
	return initialized.Load()
}

// RecoverPanic logs a panic in the named goroutine and runs cleanup. It must
// be deferred directly.
func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		if Initialized() {
			slog.Error(fmt.Sprintf("Panic in %s", name),
				"panic", r,
				"stack", string(debug.Stack()))
		} else {
			fmt.Fprintf(os.Stderr, "panic in %s: %v\n%s", name, r, debug.Stack())
		}
		if cleanup != nil {
			cleanup()
		}
	}
}
