package docmodel

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

// Logger returns the logger used to report entries skipped during loads.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// SetLogger replaces the package logger. Pass nil to go back to slog.Default().
func SetLogger(l *slog.Logger) {
	logger.Store(l)
}

func warnSkipped(path string, value any, err error) {
	Logger().LogAttrs(context.Background(), slog.LevelWarn, "docmodel: loading data failed", slog.String("path", path), slog.Any("value", value), slog.Any("err", err))
}

func debugSkipped(path string, value any, reason string) {
	Logger().LogAttrs(context.Background(), slog.LevelDebug, "docmodel: skipped entry", slog.String("path", path), slog.Any("value", value), slog.String("reason", reason))
}

func joinPath(base, seg string) string {
	if base == "" {
		return seg
	}
	return base + "." + seg
}
