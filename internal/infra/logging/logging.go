// Package logging builds the process logger and carries per-request fields
// through context.
package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"obsidian-chat/internal/config"
)

type ctxKey int

const (
	ctxRequestID ctxKey = iota
	ctxSessID
)

// New builds the root logger. Level falls back to info when unparseable;
// dev runs always get the console writer regardless of the configured
// format.
func New(cfg config.LogConfig, dev bool) *zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out = os.Stdout
	logger := zerolog.New(out)
	if dev || strings.EqualFold(cfg.Format, "console") {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	logger = logger.With().Timestamp().Logger()
	return &logger
}

// With returns base enriched with the request and session IDs present in
// ctx, if any.
func With(ctx context.Context, base *zerolog.Logger) *zerolog.Logger {
	c := base.With()
	if id, ok := ctx.Value(ctxRequestID).(string); ok && id != "" {
		c = c.Str("request_id", id)
	}
	if id, ok := ctx.Value(ctxSessID).(string); ok && id != "" {
		c = c.Str("session_id", id)
	}
	logger := c.Logger()
	return &logger
}

// TraceDuration logs entry and exit of a method at trace level.
//
//	defer logging.TraceDuration(logger, "ChatUC.Send")()
func TraceDuration(logger *zerolog.Logger, method string) func() {
	start := time.Now()
	logger.Trace().Str("method", method).Msg("start")
	return func() {
		logger.Trace().Str("method", method).Dur("duration", time.Since(start)).Msg("finish")
	}
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}

func WithSessID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxSessID, id)
}
