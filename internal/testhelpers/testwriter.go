package testhelpers

import (
	"io"
	"strings"
	"sync/atomic"
	"testing"
)

// Writer writes to t.Log so that logs are only shown for failing tests.
type Writer struct {
	t    testing.TB
	done atomic.Bool
}

// NewWriter creates a Writer that stops accepting writes once t has finished.
func NewWriter(t testing.TB) io.Writer {
	w := &Writer{t: t}
	t.Cleanup(func() {
		w.done.Store(true)
	})
	return w
}

// Write implements io.Writer. Writing after the test has completed panics because it means a
// background goroutine such as the HTTP server outlived the test.
func (w *Writer) Write(p []byte) (int, error) {
	if w.done.Load() {
		panic("testwriter: write after test completion, is the server shut down in t.Cleanup?")
	}
	if output := strings.TrimSuffix(string(p), "\n"); output != "" {
		w.t.Log(output)
	}
	return len(p), nil
}
