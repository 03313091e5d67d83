package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// RetentionDays is how long rotated log files are kept.
const RetentionDays = 7

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
	// Console receives the coloured output; defaults to os.Stdout.
	Console io.Writer
}

// Logger writes JSON records to a daily-rotated file and a tinted copy to
// the console. Message formatting follows fmt when args are given.
type Logger struct {
	cfg         Config
	level       slog.Level
	fileLogger  *slog.Logger
	console     *slog.Logger
	file        *os.File
	currentDate string
	mu          sync.RWMutex
	ticker      *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
}

// ParseLevel maps a config level name onto slog; unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// New opens the log file and starts the rotation checker.
func New(cfg Config) (*Logger, error) {
	if cfg.Filename == "" {
		cfg.Filename = "playground.log"
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Console == nil {
		cfg.Console = os.Stdout
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := openLogFile(filepath.Join(cfg.Dir, cfg.Filename))
	if err != nil {
		return nil, err
	}

	level := ParseLevel(cfg.Level)
	l := &Logger{
		cfg:         cfg,
		level:       level,
		fileLogger:  slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})),
		console:     slog.New(tint.NewHandler(cfg.Console, &tint.Options{Level: level, TimeFormat: "15:04:05.000"})),
		file:        file,
		currentDate: time.Now().Format(time.DateOnly),
		stopCh:      make(chan struct{}),
	}
	l.startRotationChecker()
	return l, nil
}

// Discard returns a logger that drops everything, for tests and defaults.
func Discard() *Logger {
	h := slog.NewTextHandler(io.Discard, nil)
	return &Logger{
		level:      slog.LevelError + 1,
		fileLogger: slog.New(h),
		console:    slog.New(h),
		stopCh:     make(chan struct{}),
	}
}

func openLogFile(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

func (l *Logger) startRotationChecker() {
	l.ticker = time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-l.ticker.C:
				if today := time.Now().Format(time.DateOnly); today != l.date() {
					l.rotate(today)
					l.cleanOldLogs(time.Now())
				}
			case <-l.stopCh:
				return
			}
		}
	}()
}

func (l *Logger) date() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.currentDate
}

// rotate archives the current file as <base>-<date><ext> and reopens it.
func (l *Logger) rotate(newDate string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.Close()
	}

	ext := filepath.Ext(l.cfg.Filename)
	base := strings.TrimSuffix(l.cfg.Filename, ext)
	current := filepath.Join(l.cfg.Dir, l.cfg.Filename)
	archived := filepath.Join(l.cfg.Dir, fmt.Sprintf("%s-%s%s", base, l.currentDate, ext))

	if _, err := os.Stat(current); err == nil {
		if err := os.Rename(current, archived); err != nil {
			l.console.Error("rename log file failed", slog.Any("error", err))
		}
	}

	file, err := openLogFile(current)
	if err != nil {
		l.console.Error("reopen log file failed", slog.Any("error", err))
		return
	}
	l.file = file
	l.currentDate = newDate
	l.fileLogger = slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: l.level}))
	l.console.Info("log file rotated", slog.String("date", newDate))
}

// cleanOldLogs removes archives older than RetentionDays relative to now.
func (l *Logger) cleanOldLogs(now time.Time) {
	entries, err := os.ReadDir(l.cfg.Dir)
	if err != nil {
		return
	}

	ext := filepath.Ext(l.cfg.Filename)
	prefix := strings.TrimSuffix(l.cfg.Filename, ext) + "-"
	cutoff := now.AddDate(0, 0, -RetentionDays)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		date, err := time.Parse(time.DateOnly, strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext))
		if err != nil || !date.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(l.cfg.Dir, name)); err == nil {
			l.console.Info("removed old log file", slog.String("file", name))
		}
	}
}

// Close stops rotation and closes the file. Safe to call more than once.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.ticker != nil {
			l.ticker.Stop()
		}
		close(l.stopCh)
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if l == nil || level < l.level {
		return
	}
	if len(args) > 0 && strings.Contains(msg, "%") {
		msg = fmt.Sprintf(msg, args...)
		args = nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	ctx := context.Background()
	l.fileLogger.Log(ctx, level, msg, args...)
	l.console.Log(ctx, level, msg, args...)
}

// FormatLog prefixes message with a bracketed tag unless it already has one.
func FormatLog(tag, message string) string {
	tag = strings.TrimSpace(tag)
	message = strings.TrimSpace(message)
	if tag == "" || strings.HasPrefix(message, "[") {
		return message
	}
	return "[" + tag + "] " + message
}

func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

func (l *Logger) DebugTag(tag, msg string, args ...any) {
	l.log(slog.LevelDebug, FormatLog(tag, msg), args...)
}

func (l *Logger) InfoTag(tag, msg string, args ...any) {
	l.log(slog.LevelInfo, FormatLog(tag, msg), args...)
}

func (l *Logger) WarnTag(tag, msg string, args ...any) {
	l.log(slog.LevelWarn, FormatLog(tag, msg), args...)
}

func (l *Logger) ErrorTag(tag, msg string, args ...any) {
	l.log(slog.LevelError, FormatLog(tag, msg), args...)
}

// Slog exposes the console logger for structured integrations.
func (l *Logger) Slog() *slog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.console
}
