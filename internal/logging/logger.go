// Package logging configures log/slog for the server and the CLI.
//
// Output goes to stdout in text or JSON. When a log file is configured the
// same records are also written to it as JSON through a slog-multi fan-out.
// FromContext adds the chi request id and the collection owner of a request.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	slogmulti "github.com/samber/slog-multi"

	"github.com/JonMunkholm/fossil-import/internal/core"
)

// Setup configures the global slog logger to write to stdout.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, nil, level, format))
}

// SetupWithFile is Setup plus a JSON copy of every record appended to path.
// The returned function closes the file. An empty path behaves like Setup.
func SetupWithFile(level, format, path string) (func() error, error) {
	if path == "" {
		Setup(level, format)
		return func() error { return nil }, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		Setup(level, format)
		return func() error { return nil }, fmt.Errorf("open log file %s: %w", path, err)
	}

	slog.SetDefault(New(os.Stdout, file, level, format))
	return file.Close, nil
}

// New builds a logger writing to out in the given format and, when file is
// non-nil, JSON to file as well.
func New(out, file io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	if file == nil {
		return slog.New(handler)
	}
	return slog.New(slogmulti.Fanout(handler, slog.NewJSONHandler(file, opts)))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns the default logger enriched with request_id and
// owner_id when ctx carries them.
//
//	logger := logging.FromContext(r.Context())
//	logger.Info("import started", "session_id", id)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if owner := core.OwnerIDFromContext(ctx); owner != "" {
		logger = logger.With("owner_id", owner)
	}

	return logger
}

// WithFields returns FromContext(ctx) with additional structured fields.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
