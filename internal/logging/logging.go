// Package logging configures the process-wide structured loggers and hands
// out service-scoped slog instances to the engine components.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu               sync.RWMutex
	structuredLogger *slog.Logger
	fileWriter       io.WriteCloser
)

// Config controls logger construction.
type Config struct {
	Level      slog.Level
	FilePath   string // empty disables file output
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init initializes the structured JSON logger. When a file path is set,
// output goes both to stdout and a rotating log file.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	var w io.Writer = os.Stdout
	if cfg.FilePath != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		fileWriter = lj
		w = io.MultiWriter(os.Stdout, lj)
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.Level})
	structuredLogger = slog.New(handler)
	slog.SetDefault(structuredLogger)
}

// SetOutput redirects logger output, primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	structuredLogger = slog.New(slog.NewJSONHandler(w, nil))
	slog.SetDefault(structuredLogger)
}

// Structured returns the globally configured structured logger.
// Falls back to the slog default when Init has not been called.
func Structured() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if structuredLogger == nil {
		return slog.Default()
	}
	return structuredLogger
}

// ForService creates a logger instance with the 'service' attribute added.
func ForService(serviceName string) *slog.Logger {
	return Structured().With("service", serviceName)
}

// Close flushes and closes the rotating file writer, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}
