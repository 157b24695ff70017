// Package monitoring holds the process-wide logger used by the storage layer
// and the command entrypoint.
package monitoring

import (
	"io"
	"log"
	"strings"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Writer returns an io.Writer that forwards each write to Logf with the given
// prefix. It lets library loggers that expect a writer share the Logf sink.
func Writer(prefix string) io.Writer {
	return logfWriter{prefix: prefix}
}

type logfWriter struct {
	prefix string
}

func (w logfWriter) Write(p []byte) (int, error) {
	Logf("%s%s", w.prefix, strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
