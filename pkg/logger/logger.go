package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// FileTimeFormat names the per-run log file.
const FileTimeFormat = "2006-01-02_150405"

// Logger writes every line to the console and, when created with New, to a
// per-run JSON log file.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New opens dir/<timestamp>.log and returns a logger writing to it and to
// stdout. level is a zerolog level name; empty means info.
func New(dir, level string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir %q: %w", dir, err)
	}

	path := filepath.Join(dir, time.Now().Format(FileTimeFormat)+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %q: %w", path, err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	l, err := newLogger(zerolog.MultiLevelWriter(console, f), level)
	if err != nil {
		f.Close()
		return nil, err
	}
	l.file = f
	return l, nil
}

// NewWriter logs to w only. Used by tests and the checkpoint command.
func NewWriter(w io.Writer, level string) (*Logger, error) {
	return newLogger(w, level)
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

func newLogger(w io.Writer, level string) (*Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &Logger{Logger: zl}, nil
}

// Path returns the per-run log file, or "" when logging to the console only.
func (l *Logger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// With returns a child logger carrying an extra string field. The child shares
// the parent's log file; only the parent should be closed.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{Logger: l.Logger.With().Str(key, value).Logger(), file: l.file}
}

func (l *Logger) ForAccount(account string) *Logger {
	return l.With("account", account)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.Logger.Info().Msgf(format, v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.Logger.Warn().Msgf(format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.Logger.Error().Msgf(format, v...)
}
