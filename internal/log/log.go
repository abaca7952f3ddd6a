// Package log installs the process-wide slog handler. Everything else logs
// through log/slog.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	charmlog "github.com/charmbracelet/log/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
	closer      io.Closer
)

// Setup sends slog output to a rotating logfmt file. Only the first call has
// any effect; the TUI owns the terminal so nothing is written to stderr.
func Setup(logFile string, debug bool) {
	initOnce.Do(func() {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     30, // days
		}
		closer = rotator
		slog.SetDefault(slog.New(NewHandler(rotator, debug)))
		initialized.Store(true)
	})
}

// NewHandler returns the logfmt handler used by Setup.
func NewHandler(w io.Writer, debug bool) slog.Handler {
	level := charmlog.InfoLevel
	if debug {
		level = charmlog.DebugLevel
	}
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmlog.LogfmtFormatter,
	})
}

func Initialized() bool {
	return initialized.Load()
}

// Close flushes and closes the log file.
func Close() error {
	if closer == nil {
		return nil
	}
	return closer.Close()
}

// RecoverPanic logs a panic from the calling goroutine and runs cleanup. Use
// it deferred at the top of long-lived goroutines.
func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		slog.Error("Panic recovered", "name", name, "panic", r, "stack", string(debug.Stack()))
		if cleanup != nil {
			cleanup()
		}
	}
}
