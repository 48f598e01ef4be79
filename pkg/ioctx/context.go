// Package ioctx carries the process's output streams and logger on a
// context, so commands write where their caller says.
package ioctx

import (
	"context"
	"io"
	"log/slog"
)

type stdoutKey struct{}
type stderrKey struct{}
type loggerKey struct{}

func StderrFromContext(ctx context.Context) io.Writer {
	logger := ctx.Value(stderrKey{})
	if logger == nil {
		logger = io.Discard
	}

	return logger.(io.Writer)
}

func StderrToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stderrKey{}, w)
}

func StdoutFromContext(ctx context.Context) io.Writer {
	writer := ctx.Value(stdoutKey{})
	if writer == nil {
		writer = io.Discard
	}

	return writer.(io.Writer)
}

func StdoutToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stdoutKey{}, w)
}

// LoggerFromContext returns the logger on ctx, or slog.Default.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

func LoggerToContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}
