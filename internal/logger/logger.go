// Package logger is the compiler's leveled key/value logger. Messages go to
// stderr through a log/slog text handler; debug messages are dropped unless
// verbose output has been switched on with SetVerbose.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	level   = new(slog.LevelVar)
	current = newLogger(os.Stderr)
)

func init() {
	level.Set(slog.LevelWarn)
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetVerbose switches debug and info output on or off.
func SetVerbose(on bool) {
	if on {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelWarn)
	}
}

// Verbose reports whether debug output is enabled.
func Verbose() bool {
	return level.Level() <= slog.LevelDebug
}

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	current = newLogger(w)
}

func get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return current
}

func Debug(msg string, args ...any) { get().Debug(msg, args...) }
func Info(msg string, args ...any)  { get().Info(msg, args...) }
func Warn(msg string, args ...any)  { get().Warn(msg, args...) }
func Error(msg string, args ...any) { get().Error(msg, args...) }

// LogPhase records the completion of a compiler phase.
func LogPhase(phase string, args ...any) {
	get().Debug("phase complete", append([]any{"phase", phase}, args...)...)
}

// LogCodeGen records the code emitted for one function.
func LogCodeGen(target, fn string, instCount int) {
	get().Debug("function emitted", "target", target, "function", fn, "instructions", instCount)
}
