package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Config holds logging configuration
type Config struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"`
	// Output is "stderr", "stdout", "discard" or a file path.
	Output string `json:"output,omitempty"`
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}
}

// Logger wraps slog.Logger with additional context methods
type Logger struct {
	*slog.Logger
	closer io.Closer
}

// NewLogger creates a new structured logger from configuration. File outputs
// are opened in append mode; call Close to release them.
func NewLogger(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var writer io.Writer = os.Stderr
	var closer io.Closer

	switch out := strings.TrimSpace(cfg.Output); strings.ToLower(out) {
	case "stderr", "":
		writer = os.Stderr
	case "stdout":
		writer = os.Stdout
	case "discard", "none":
		writer = io.Discard
	default:
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err == nil {
			if f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
				writer = f
				closer = f
			}
		}
		// Unwritable log paths fall back to stderr.
	}

	return &Logger{
		Logger: slog.New(newHandler(writer, cfg)),
		closer: closer,
	}
}

// NewWithWriter builds a logger that writes to w, mostly for tests.
func NewWithWriter(w io.Writer, cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Logger{Logger: slog.New(newHandler(w, cfg))}
}

func newHandler(w io.Writer, cfg *Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("timestamp", a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.NewJSONHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// WithComponent adds component context to logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", component),
	}
}

// Request logs a completed backend call.
func (l *Logger) Request(method, path string, status int, duration time.Duration, args ...any) {
	finalArgs := []any{"method", method, "path", path, "status", status, "duration_ms", duration.Milliseconds()}
	finalArgs = append(finalArgs, args...)
	l.Logger.Debug("backend request", finalArgs...)
}

// Scan logs panel executions against the backend.
func (l *Logger) Scan(msg string, panel string, args ...any) {
	finalArgs := []any{"subsystem", "scan", "panel", panel}
	finalArgs = append(finalArgs, args...)
	l.Logger.Info(msg, finalArgs...)
}

// Stream logs chat and terminal stream lifecycle events.
func (l *Logger) Stream(msg string, args ...any) {
	finalArgs := []any{"subsystem", "stream"}
	finalArgs = append(finalArgs, args...)
	l.Logger.Debug(msg, finalArgs...)
}

var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
)

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// Default returns the default logger instance
func Default() *Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(DefaultConfig())
	}
	return defaultLogger
}

func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}
