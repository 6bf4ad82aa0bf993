// Package common provides shared utilities for b3notifier
package common

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zerolog.Logger to provide a consistent interface
type Logger struct {
	zerolog.Logger
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new console logger with the specified level
func NewLogger(level string) *Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	logger := zerolog.New(output).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: logger}
}

// NewLoggerWithOutput creates a logger writing to a specific output
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	logger := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: logger}
}

// NewLoggerFromConfig builds a logger for the configured outputs.
// The "file" output rotates through lumberjack; an empty output list
// yields a silent logger. The returned closer flushes the log file.
func NewLoggerFromConfig(cfg LoggingConfig) (*Logger, io.Closer) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	for _, out := range cfg.Outputs {
		switch out {
		case "console":
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		case "file":
			if cfg.FilePath == "" {
				continue
			}
			lj := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				Compress:   false,
			}
			writers = append(writers, lj)
			closer = lj
		}
	}

	if len(writers) == 0 {
		return NewSilentLogger(), closer
	}

	return NewLoggerWithOutput(cfg.Level, zerolog.MultiLevelWriter(writers...)), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewSilentLogger creates a logger that discards all output
func NewSilentLogger() *Logger {
	logger := zerolog.New(io.Discard)
	return &Logger{Logger: logger}
}
