// Package logger provides structured logging for TitaniumShare.
//
// It is a thin facade over log/slog with a process-wide handler that can be
// reconfigured at startup. Components log through the package-level functions
// so that output format and level stay consistent across the whole server.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Config holds logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

var (
	mu       sync.RWMutex
	output   io.Writer = os.Stdout
	levelVar           = new(slog.LevelVar)
	slogger            = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar}))
)

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init initializes the logger with the given configuration.
// Output can be "stdout", "stderr", or a file path.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", cfg.Output, err)
		}
		output = f
	}

	levelVar.Set(parseLevel(cfg.Level))

	opts := &slog.HandlerOptions{Level: levelVar}
	if strings.EqualFold(cfg.Format, "json") {
		slogger = slog.New(slog.NewJSONHandler(output, opts))
	} else {
		slogger = slog.New(slog.NewTextHandler(output, opts))
	}
	return nil
}

// InitWithWriter configures the logger to write to an arbitrary writer.
// Intended for tests that capture log output.
func InitWithWriter(w io.Writer, level, format string) {
	mu.Lock()
	defer mu.Unlock()

	output = w
	levelVar.Set(parseLevel(level))

	opts := &slog.HandlerOptions{Level: levelVar}
	if strings.EqualFold(format, "json") {
		slogger = slog.New(slog.NewJSONHandler(w, opts))
	} else {
		slogger = slog.New(slog.NewTextHandler(w, opts))
	}
}

// SetLevel changes the minimum log level at runtime.
func SetLevel(level string) {
	levelVar.Set(parseLevel(level))
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	get().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	get().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	get().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	get().Error(msg, args...)
}

// DebugCtx logs at debug level, appending request-scoped fields from ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	get().Debug(msg, appendContextFields(ctx, args)...)
}

// InfoCtx logs at info level, appending request-scoped fields from ctx.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	get().Info(msg, appendContextFields(ctx, args)...)
}

// WarnCtx logs at warn level, appending request-scoped fields from ctx.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	get().Warn(msg, appendContextFields(ctx, args)...)
}

// ErrorCtx logs at error level, appending request-scoped fields from ctx.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	get().Error(msg, appendContextFields(ctx, args)...)
}

// With returns a logger with the given fields pre-applied.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

// DurationMs returns elapsed milliseconds since start, for the duration_ms field.
func DurationMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
