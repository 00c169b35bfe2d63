package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"course-ambassador-platform/internal/config"

	"github.com/rs/zerolog"
)

// New creates a zerolog logger configured from config.
// Supports "trace" | "debug" | "info" | "warn" | "error" levels
// and "json" | "console" formats. Sampling can be enabled to reduce noise in prod.
func New(cfg config.LogConfig, dev bool) *zerolog.Logger {
	level, _ := zerolog.ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	var base zerolog.Logger
	if strings.ToLower(cfg.Format) == "console" || dev {
		out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		base = zerolog.New(out).With().Timestamp().Logger()
	} else {
		base = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	if cfg.Sampling && !dev {
		// Keep first 100, then 1 every 100 thereafter.
		sampled := base.Sample(&zerolog.BasicSampler{N: 100})
		return &sampled
	}
	return &base
}

// Component derives a child logger tagged with a component name.
func Component(base *zerolog.Logger, name string) *zerolog.Logger {
	l := base.With().Str("component", name).Logger()
	return &l
}

// Nop returns a discard logger for tests.
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type ctxKey int

const traceIDKey ctxKey = 0

// WithTraceID stores a request trace id in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// With returns the logger enriched with the context's trace id, if any.
func With(ctx context.Context, base *zerolog.Logger) *zerolog.Logger {
	if tid, ok := ctx.Value(traceIDKey).(string); ok && tid != "" {
		l := base.With().Str("trace_id", tid).Logger()
		return &l
	}
	return base
}
