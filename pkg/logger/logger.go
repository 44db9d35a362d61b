package logger

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

	"epstream/pkg/env"
)

var Log = slog.New(slog.NewTextHandler(io.Discard, nil))

var (
	history     []string
	historyMu   sync.RWMutex
	maxHistory  = 500
	logFile     *os.File
	logFileMu   sync.Mutex
	logLocation *time.Location
	locationMu  sync.RWMutex

	broadcastCh chan<- string
	broadcastMu sync.RWMutex
)

const timeLayout = "2006-01-02T15:04:05.000-07:00"

// SetBroadcast sets a channel to receive formatted log lines. Passing nil stops
// broadcasting; once it returns no further sends reach the previous channel.
func SetBroadcast(ch chan<- string) {
	broadcastMu.Lock()
	broadcastCh = ch
	broadcastMu.Unlock()
}

// ParseLevel maps a level name to a slog.Level, defaulting to INFO.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init initializes the global logger writing to stdout.
func Init(levelStr string) {
	initWith(levelStr, os.Stdout)
}

func initWith(levelStr string, out io.Writer) {
	level := ParseLevel(levelStr)

	loc := time.Local
	if tz := env.TZ(); tz != "" {
		if loaded, err := time.LoadLocation(tz); err == nil {
			loc = loaded
		}
	}
	locationMu.Lock()
	logLocation = loc
	locationMu.Unlock()

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().In(loc).Format(timeLayout))
			}
			return a
		},
	}

	Log = slog.New(&GlobalBroadcastHandler{Handler: slog.NewTextHandler(out, opts)})
	slog.SetDefault(Log)
}

// EnableFile appends every log line to a daily file (epstream-YYYY-MM-DD.log) in dir.
func EnableFile(dir string) error {
	locationMu.RLock()
	loc := logLocation
	locationMu.RUnlock()
	if loc == nil {
		loc = time.Local
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	name := fmt.Sprintf("epstream-%s.log", time.Now().In(loc).Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	logFileMu.Lock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	logFileMu.Unlock()
	return nil
}

// GlobalBroadcastHandler records every line in the history ring, the optional
// log file and the broadcast channel, then delegates to the wrapped handler.
type GlobalBroadcastHandler struct {
	slog.Handler
	attrs []slog.Attr
}

func (h *GlobalBroadcastHandler) Handle(ctx context.Context, r slog.Record) error {
	locationMu.RLock()
	loc := logLocation
	locationMu.RUnlock()
	if loc == nil {
		loc = time.Local
	}

	var b strings.Builder
	fmt.Fprintf(&b, "time=%s level=%s msg=%q", r.Time.In(loc).Format(timeLayout), r.Level, r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	msg := b.String()

	historyMu.Lock()
	if len(history) >= maxHistory {
		history = history[1:]
	}
	history = append(history, msg)
	historyMu.Unlock()

	err := h.Handler.Handle(ctx, r)

	logFileMu.Lock()
	if logFile != nil {
		fmt.Fprintln(logFile, msg)
	}
	logFileMu.Unlock()

	// Held across the send so SetBroadcast(nil) waits for in-flight lines.
	broadcastMu.RLock()
	if broadcastCh != nil {
		select {
		case broadcastCh <- msg:
		default:
		}
	}
	broadcastMu.RUnlock()
	return err
}

func (h *GlobalBroadcastHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &GlobalBroadcastHandler{Handler: h.Handler.WithAttrs(attrs), attrs: merged}
}

func (h *GlobalBroadcastHandler) WithGroup(name string) slog.Handler {
	return &GlobalBroadcastHandler{Handler: h.Handler.WithGroup(name), attrs: h.attrs}
}

// GetHistory returns the current log history
func GetHistory() []string {
	historyMu.RLock()
	defer historyMu.RUnlock()
	cp := make([]string, len(history))
	copy(cp, history)
	return cp
}

// SetLevel updates the logger level at runtime
func SetLevel(levelStr string) {
	Init(levelStr)
}

// Close closes the log file if one is open
func Close() {
	logFileMu.Lock()
	defer logFileMu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying l.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request scoped logger, or the global one.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return Log
}

// Helper functions for easy access
func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}

func Fatal(msg string, args ...any) {
	Log.Error(msg, args...)
	os.Exit(1)
}
