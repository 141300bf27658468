// Package logging provides the stderr-first logger used across served: a
// plain *log.Logger writing to stderr by default, optionally tee'd to a
// logfile, with no structured logging framework in between.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger is the logging surface every component is handed. It is a thin
// wrapper over *log.Logger so call sites read like plain log.Printf calls.
type Logger struct {
	*log.Logger
}

// New returns a Logger writing to w with the given prefix (e.g. "[router] ").
func New(w io.Writer, prefix string) *Logger {
	return &Logger{Logger: log.New(w, prefix, 0)}
}

// Default returns a Logger writing to os.Stderr.
func Default(prefix string) *Logger {
	return New(os.Stderr, prefix)
}

// WithFile returns an io.Writer that duplicates writes to os.Stderr and the
// named file, or just os.Stderr if path is empty. Caller owns the returned
// io.Closer's lifetime via the second return value, which is nil when path
// is empty.
func WithFile(path string) (io.Writer, io.Closer, error) {
	if path == "" {
		return os.Stderr, nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: create logfile %q: %w", path, err)
	}
	return io.MultiWriter(os.Stderr, f), f, nil
}

// Warnf logs at a warning level. served has no log-level hierarchy; this
// exists purely so call sites document intent.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Printf("warning: "+format, args...)
}

// Errorf logs at an error level.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Printf("error: "+format, args...)
}
