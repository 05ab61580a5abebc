package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide sugared logger. Nil until Init is called; the
// package helpers are no-ops in that case so libraries stay quiet in tests.
var Log *zap.SugaredLogger

func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init initializes the global logger from YEETBANK_LOG_LEVEL and
// YEETBANK_LOG_SINK.
func Init() {
	InitWithLevel("")
}

// InitWithLevel initializes the global logger but honors the provided
// level string ("debug", "info", "warn", "error"). An empty level falls back
// to YEETBANK_LOG_LEVEL.
//
// YEETBANK_LOG_SINK selects the output: "stderr" (default), "stdout" or
// "file:/path/to/log".
func InitWithLevel(level string) {
	InitSink(level, "")
}

// InitSink is InitWithLevel with a fallback sink used when
// YEETBANK_LOG_SINK is unset. The CLI passes a file under its state dir so
// log lines do not interleave with command output.
func InitSink(level, fallback string) {
	if strings.TrimSpace(level) == "" {
		level = os.Getenv("YEETBANK_LOG_LEVEL")
	}
	sink := strings.TrimSpace(os.Getenv("YEETBANK_LOG_SINK"))
	if sink == "" {
		sink = fallback
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	cfg.Sampling = nil
	switch {
	case strings.HasPrefix(sink, "file:"):
		cfg.Encoding = "json"
		cfg.OutputPaths = []string{strings.TrimPrefix(sink, "file:")}
	case sink == "stdout":
		cfg.OutputPaths = []string{"stdout"}
	default:
		cfg.OutputPaths = []string{"stderr"}
	}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		l = zap.NewNop()
	}
	Log = l.Sugar()
}

// Use replaces the global logger, mostly for tests that want an observer.
func Use(l *zap.Logger) {
	if l == nil {
		Log = nil
		return
	}
	Log = l.Sugar()
}

// Sync flushes any buffered logs.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

// Debug logs with key/value pairs.
func Debug(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Debugw(msg, args...)
}

// Info logs with key/value pairs.
func Info(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Infow(msg, args...)
}

// Warn logs with key/value pairs.
func Warn(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Warnw(msg, args...)
}

// Error logs with key/value pairs.
func Error(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Errorw(msg, args...)
}
