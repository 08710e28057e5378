// Package logging configures the process-wide slog logger and carries
// request-scoped loggers on the context.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const envDevelopment = "development"

type Options struct {
	Service string
	Level   string
	// Env "development" selects colored text; anything else logs JSON.
	Env    string
	Output io.Writer
}

type ctxKey struct{}

// Setup builds the logger described by opts and installs it as the slog
// default. Debug level also records the call site.
func Setup(opts Options) (*slog.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.Setup: %w", err)
	}
	w := opts.Output
	if w == nil {
		w = os.Stdout
	}
	addSource := lvl <= slog.LevelDebug

	var handler slog.Handler
	if opts.Env == envDevelopment {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			AddSource:  addSource,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: addSource})
	}

	logger := slog.New(handler)
	if opts.Service != "" {
		logger = logger.With("service", opts.Service)
	}
	slog.SetDefault(logger)
	return logger, nil
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
// Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}
