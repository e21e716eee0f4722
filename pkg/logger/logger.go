package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

type contextKey struct{}

// Options selects the handler built by Setup.
type Options struct {
	Level  string
	Format string
	// File, when set, receives a JSON copy of every record in addition to
	// stdout.
	File string
}

// Setup installs the default logger and returns a function that closes the
// log file, if one was opened.
func Setup(opts Options) (func() error, error) {
	closer := func() error { return nil }
	var file io.Writer
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return closer, err
		}
		file = f
		closer = f.Close
	}
	slog.SetDefault(New(os.Stdout, file, opts.Level, opts.Format))
	return closer, nil
}

// New builds a logger writing to out in the given format and, when file is
// non-nil, fanning out JSON records to file as well.
func New(out io.Writer, file io.Writer, level string, format string) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	default:
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	if file != nil {
		handler = slogmulti.Fanout(handler, slog.NewJSONHandler(file, handlerOpts))
	}
	return slog.New(handler)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

// RequestID returns the request id stored by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if requestID, ok := ctx.Value(contextKey{}).(string); ok {
		logger = logger.With("request_id", requestID)
	}
	return logger
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
