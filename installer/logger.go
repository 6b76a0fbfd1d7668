package installer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger writes structured JSON lines to a log file and keeps a
// human-readable copy of every message in memory. A nil *Logger discards
// everything, so callers never need to guard their log calls.
// Logging is safe for concurrent use; SetLevel and AttachConsole are meant
// to be called before the first message.
type Logger struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	messages []string
	console  io.Writer
	level    zerolog.Level
	zl       zerolog.Logger
}

// NewLogger creates a new Logger that writes to a timestamped file in the temp directory.
// The prefix is used in the filename: {prefix}-{timestamp}.log
//
// Example:
//
//	log, err := installer.NewLogger("timedateweather-install")
//	if err != nil {
//	    return err
//	}
//	defer log.Close()
//	log.Info("Starting installation")
func NewLogger(prefix string) (*Logger, error) {
	timestamp := time.Now().Format("20060102-150405")
	logPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s-%s.log", prefix, timestamp))

	f, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	l := newLogger(f, logPath)
	l.Info("=== %s Log ===", prefix)
	l.Info("Log file: %s", logPath)
	return l, nil
}

// NewLoggerToFile creates a new Logger that appends to the specified file path.
// Useful when the uninstaller should continue the installer's log.
func NewLoggerToFile(logPath string) (*Logger, error) {
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return newLogger(f, logPath), nil
}

// NewMemoryLogger creates a Logger that only keeps messages in memory.
func NewMemoryLogger() *Logger {
	return newLogger(nil, "")
}

func newLogger(f *os.File, path string) *Logger {
	l := &Logger{
		file:     f,
		path:     path,
		messages: make([]string, 0, 100),
		level:    zerolog.InfoLevel,
	}
	l.rebuild()
	return l
}

// rebuild recreates the zerolog pipeline after an output or level change.
// Callers must not hold l.mu.
func (l *Logger) rebuild() {
	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: memoryWriter{l}, NoColor: true, TimeFormat: "15:04:05.000"},
	}
	if l.file != nil {
		writers = append(writers, zerolog.SyncWriter(l.file))
	}
	if l.console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: l.console, TimeFormat: "15:04:05"})
	}
	l.zl = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(l.level).
		With().Timestamp().Logger()
}

// SetLevel changes the minimum level written to every output.
func (l *Logger) SetLevel(level zerolog.Level) {
	if l == nil {
		return
	}
	l.level = level
	l.rebuild()
}

// AttachConsole mirrors log output to w in console format, typically os.Stderr.
func (l *Logger) AttachConsole(w io.Writer) {
	if l == nil {
		return
	}
	l.console = w
	l.rebuild()
}

// Close closes the log file.
func (l *Logger) Close() {
	if l == nil || l.file == nil {
		return
	}
	l.Info("=== Log ended ===")
	l.file.Close()
	l.file = nil
	l.rebuild()
}

// Path returns the path to the log file.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Content returns the full log content as a string.
func (l *Logger) Content() string {
	if l == nil {
		return ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.messages, "\n")
}

// Z returns the underlying zerolog logger for structured events.
func (l *Logger) Z() *zerolog.Logger {
	if l == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return &l.zl
}

// Debug logs a diagnostic message.
func (l *Logger) Debug(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Debug().Msgf(format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Info().Msgf(format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Warn().Msgf(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Error().Msgf(format, args...)
}

// Step logs a major milestone/step in the process.
func (l *Logger) Step(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Info().Bool("milestone", true).Msgf(format, args...)
}

// memoryWriter appends each formatted console line to the in-memory buffer.
type memoryWriter struct{ l *Logger }

func (w memoryWriter) Write(p []byte) (int, error) {
	w.l.mu.Lock()
	defer w.l.mu.Unlock()
	w.l.messages = append(w.l.messages, strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
