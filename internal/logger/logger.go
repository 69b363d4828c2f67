package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"

	"camdash/internal/config"
)

// Per-level log files kept in the log directory.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to files and the console.
type Logger struct {
	slog   *slog.Logger
	logDir string
	files  []*os.File
	mu     sync.Mutex
}

// Options configures New.
type Options struct {
	Dir     string
	Level   slog.Level
	Console io.Writer // defaults to os.Stderr
	NoColor bool
}

// NewLogger creates a Logger from the application config and ensures the log
// directory exists.
func NewLogger(cfg *config.Config) (*Logger, error) {
	return New(Options{Dir: cfg.LogDirectory, Level: ParseLevel(cfg.LogLevel)})
}

// New builds a Logger writing colored output to the console and plain text to
// one file per level.
func New(opts Options) (*Logger, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{logDir: opts.Dir}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	handlers := []slog.Handler{
		tint.NewHandler(console, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.DateTime,
			NoColor:    opts.NoColor,
		}),
	}

	routes := []struct {
		name  string
		level slog.Level
	}{
		{InfoFile, slog.LevelInfo},
		{WarningFile, slog.LevelWarn},
		{ErrorFile, slog.LevelError},
	}
	for _, r := range routes {
		f, err := l.openLogFile(filepath.Join(opts.Dir, r.name))
		if err != nil {
			l.Close()
			return nil, err
		}
		handlers = append(handlers, &levelHandler{
			Handler: slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}),
			level:   r.level,
		})
	}

	l.slog = slog.New(fanout(handlers))
	return l, nil
}

// NewDiscard returns a logger that drops everything. Useful in tests.
func NewDiscard() *Logger {
	return &Logger{slog: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// ParseLevel maps a config string to a slog level, defaulting to info.
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

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(filename string) (*os.File, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filename, err)
	}
	l.files = append(l.files, file)
	return file, nil
}

// Slog exposes the structured logger for call sites that attach attributes.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...any) {
	l.slog.Info(fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...any) {
	l.slog.Warn(fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...any) {
	l.slog.Error(fmt.Sprintf(format, v...))
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return errors.New("logger has no log directory")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	filePath := filepath.Join(l.logDir, filepath.Base(fileName))
	if err := os.Truncate(filePath, 0); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", fileName, err)
	}
	l.slog.Info("log file cleared", "file", fileName)
	return nil
}

// Close releases the log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for _, f := range l.files {
		errs = append(errs, f.Close())
	}
	l.files = nil
	return errors.Join(errs...)
}

// levelHandler only accepts records of exactly one level. Debug goes to the
// info file.
type levelHandler struct {
	slog.Handler
	level slog.Level
}

func (h *levelHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	if h.level == slog.LevelInfo {
		return lvl <= slog.LevelInfo
	}
	return lvl == h.level
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{Handler: h.Handler.WithGroup(name), level: h.level}
}

type multiHandler []slog.Handler

func fanout(hs []slog.Handler) slog.Handler {
	return multiHandler(hs)
}

func (m multiHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}
