// Package logger provides leveled logging for the sercha-drive workers,
// scheduler and command line. Debug output is only printed in verbose mode;
// Info, Warn and Error are always printed.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu         sync.RWMutex
	verbose    bool
	timestamps bool
	output     io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetTimestamps prefixes every line with an RFC3339 timestamp.
// Long-running processes (workers, scheduler, server) turn this on.
func SetTimestamps(v bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = v
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func write(level, prefix, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if prefix != "" {
		line = "[" + prefix + "] " + line
	}
	if timestamps {
		fmt.Fprintf(output, "%s [%s] %s\n", time.Now().UTC().Format(time.RFC3339), level, line)
		return
	}
	fmt.Fprintf(output, "[%s] %s\n", level, line)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		write("DEBUG", "", format, args...)
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write("INFO", "", format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write("WARN", "", format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write("ERROR", "", format, args...)
}

// Logger tags every message with a component prefix, e.g. "fetch".
type Logger struct {
	prefix string
}

// With returns a Logger that prefixes messages with "[prefix] ".
func With(prefix string) Logger {
	return Logger{prefix: prefix}
}

// Debug prints a prefixed message if verbose mode is enabled.
func (l Logger) Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		write("DEBUG", l.prefix, format, args...)
	}
}

// Info prints a prefixed informational message.
func (l Logger) Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write("INFO", l.prefix, format, args...)
}

// Warn prints a prefixed warning.
func (l Logger) Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write("WARN", l.prefix, format, args...)
}

// Error prints a prefixed error.
func (l Logger) Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	write("ERROR", l.prefix, format, args...)
}
