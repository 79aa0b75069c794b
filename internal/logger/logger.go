package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ekisa-team/voicebox/internal/env"
)

// Options configures the process logger.
type Options struct {
	level      *slog.LevelVar
	console    io.Writer
	logToFile  bool
	logFile    string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
}

// Option mutates Options.
type Option func(*Options)

// WithLevel shares a level variable with the caller so it can be changed at runtime.
func WithLevel(level *slog.LevelVar) Option {
	return func(o *Options) { o.level = level }
}

// WithConsole redirects console output (stderr by default).
func WithConsole(w io.Writer) Option {
	return func(o *Options) { o.console = w }
}

// WithLogToFile enables the rotating JSON log file.
func WithLogToFile(enabled bool) Option {
	return func(o *Options) { o.logToFile = enabled }
}

// WithLogFile sets the log file path.
func WithLogFile(path string) Option {
	return func(o *Options) { o.logFile = path }
}

// WithRotation sets lumberjack rotation limits.
func WithRotation(maxSizeMB, maxBackups, maxAgeDays int) Option {
	return func(o *Options) {
		o.maxSizeMB = maxSizeMB
		o.maxBackups = maxBackups
		o.maxAgeDays = maxAgeDays
	}
}

// New builds a slog.Logger for the given environment.
// Development logs go to a colored console, production logs are JSON.
func New(environment env.Environment, opts ...Option) *slog.Logger {
	o := &Options{
		console:    os.Stderr,
		logFile:    "logs/voicebox.log",
		maxSizeMB:  50,
		maxBackups: 3,
		maxAgeDays: 28,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.level == nil {
		o.level = new(slog.LevelVar)
	}

	var console slog.Handler
	if environment.IsProduction() {
		console = slog.NewJSONHandler(o.console, &slog.HandlerOptions{Level: o.level})
	} else {
		console = tint.NewHandler(o.console, &tint.Options{
			Level:      o.level,
			TimeFormat: time.Kitchen,
		})
	}

	if !o.logToFile || o.logFile == "" {
		return slog.New(contextHandler{console})
	}

	file := &lumberjack.Logger{
		Filename:   o.logFile,
		MaxSize:    o.maxSizeMB,
		MaxBackups: o.maxBackups,
		MaxAge:     o.maxAgeDays,
		Compress:   true,
	}

	return slog.New(contextHandler{newFanout(console, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: o.level}))})
}

// ParseLevel converts a level name into a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
