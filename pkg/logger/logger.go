package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// HandlerOptions configures the log handler.
type HandlerOptions struct {
	Level slog.Leveler
	Out   io.Writer
}

// NewHandler creates the application slog handler. A nil opts gives JSON
// output on stdout at info level.
func NewHandler(opts *HandlerOptions) slog.Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	return slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: opts.Level,
	})
}

type ctxKey struct{}

// IntoContext stores a logger in the context.
func IntoContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the logger stored in the context, falling back to the
// default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return log
	}

	return slog.Default()
}
