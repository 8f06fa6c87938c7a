// Package logging configures the application loggers. A JSON structured
// logger goes to stdout, a text logger to stderr, and services can request
// dedicated rotating file loggers.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	structuredLogger *slog.Logger
	initOnce         sync.Once
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

func replaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		label, exists := levelNames[level]
		if !exists {
			label = level.String()
		}
		a.Value = slog.StringValue(label)
	}
	return a
}

// Init initializes the logging system. It configures JSON output for
// structured logs and sets it as the process default logger.
func Init(level slog.Leveler) {
	initOnce.Do(func() {
		handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceLevelNames,
		})
		structuredLogger = slog.New(handler)
		slog.SetDefault(structuredLogger)
	})
}

// Structured returns the structured JSON logger, initializing with defaults
// if Init has not been called.
func Structured() *slog.Logger {
	if structuredLogger == nil {
		Init(slog.LevelInfo)
	}
	return structuredLogger
}

// ForService returns a logger scoped with a service attribute.
func ForService(serviceName string) *slog.Logger {
	return Structured().With("service", serviceName)
}

// Debug logs at debug level on the structured logger.
func Debug(msg string, args ...any) { Structured().Debug(msg, args...) }

// Info logs at info level on the structured logger.
func Info(msg string, args ...any) { Structured().Info(msg, args...) }

// Warn logs at warn level on the structured logger.
func Warn(msg string, args ...any) { Structured().Warn(msg, args...) }

// Error logs at error level on the structured logger.
func Error(msg string, args ...any) { Structured().Error(msg, args...) }

// FileRotationConfig controls lumberjack rotation for file loggers.
type FileRotationConfig struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileRotation returns the rotation settings used when the caller
// does not provide its own.
func DefaultFileRotation() FileRotationConfig {
	return FileRotationConfig{
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// NewFileLogger creates a service-scoped JSON logger writing to a rotating
// log file. The returned closer flushes and closes the underlying file.
func NewFileLogger(filePath, serviceName string, level slog.Leveler) (*slog.Logger, func() error, error) {
	// lumberjack doesn't create directories
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	rotation := DefaultFileRotation()
	logWriter := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    rotation.MaxSizeMB,
		MaxBackups: rotation.MaxBackups,
		MaxAge:     rotation.MaxAgeDays,
		Compress:   rotation.Compress,
	}

	handler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	})

	logger := slog.New(handler).With("service", serviceName)
	return logger, logWriter.Close, nil
}

// NewLoggerForWriter builds a JSON logger writing to w. Used in tests to
// capture log output.
func NewLoggerForWriter(w io.Writer, serviceName string, level slog.Leveler) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	})
	return slog.New(handler).With("service", serviceName)
}
