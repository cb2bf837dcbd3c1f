// Package errors extends the standard library errors with source locations and structured slog annotations.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// Re-exports so that callers only need one errors import.
var (
	Is     = stderrors.Is
	As     = stderrors.As
	Unwrap = stderrors.Unwrap
	Join   = stderrors.Join
)

type sentinelError struct {
	msg string
}

func (e *sentinelError) Error() string {
	return e.msg
}

// NewSentinel creates an error meant to be compared with [Is]. It carries no source location.
func NewSentinel(msg string) error {
	return &sentinelError{msg: msg}
}

type annotatedError struct {
	msg         string
	cause       error
	source      string
	annotations []slog.Attr
}

func (e *annotatedError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.cause
}

// New creates an error annotated with the caller's source location.
func New(msg string, attrs ...slog.Attr) error {
	return &annotatedError{msg: msg, cause: nil, source: callerSource(1), annotations: attrs}
}

// Wrap adds msg and structured annotations to err. The source location of the caller is recorded so that
// [SlogError] can point to where the error was handled.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	return &annotatedError{msg: msg, cause: err, source: callerSource(1), annotations: attrs}
}

// DecoratePanic converts a recovered value into an error annotated with the location of the panic.
// It returns nil when nothing was recovered.
func DecoratePanic(recovered any) error {
	if recovered == nil {
		return nil
	}
	var cause error
	if err, ok := recovered.(error); ok {
		cause = err
	}
	msg := fmt.Sprintf("panic: %v", recovered)
	if cause != nil {
		msg = "panic"
	}
	return &annotatedError{msg: msg, cause: cause, source: panicSource(), annotations: nil}
}

// SlogError returns an slog attribute describing err. Annotations of every wrapped annotated error are
// collected into the "annotations" group and the innermost source location is reported.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	var (
		annotations []any
		source      string
	)
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		var annotated *annotatedError
		if !stderrors.As(e, &annotated) {
			break
		}
		for _, attr := range annotated.annotations {
			annotations = append(annotations, attr)
		}
		source = annotated.source
		e = annotated
	}
	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	return slog.Group("error", attrs...)
}

// callerSource reports the location skip frames above the function calling callerSource.
func callerSource(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// panicSource finds the frame that raised the panic, which is the first frame after runtime.gopanic.
func panicSource() string {
	const maxDepth = 32
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	afterPanic := false
	for {
		frame, more := frames.Next()
		if afterPanic && !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
		if frame.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if !more {
			return ""
		}
	}
}
