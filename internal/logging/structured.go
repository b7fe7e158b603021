// Package logging provides component-scoped structured logging on zap.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Options configures the process logger
type Options struct {
	Level  Level
	Output io.Writer // defaults to stderr
	JSON   bool
}

var (
	baseMu sync.RWMutex
	base   = zap.NewNop()
)

// Configure installs the process-wide zap logger. Until it is called every
// Logger is a no-op.
func Configure(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.MessageKey = "event"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if opts.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	SetCore(zapcore.NewCore(enc, zapcore.AddSync(out), ParseLevel(string(opts.Level))))
}

// SetCore replaces the backing core. Tests use it with zaptest/observer.
func SetCore(core zapcore.Core) {
	baseMu.Lock()
	defer baseMu.Unlock()
	base = zap.New(core)
}

// Reset restores the no-op logger
func Reset() {
	baseMu.Lock()
	defer baseMu.Unlock()
	base = zap.NewNop()
}

// Sync flushes buffered entries
func Sync() error {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base.Sync()
}

// ParseLevel maps a level name to a zap level, defaulting to info
func ParseLevel(s string) zapcore.Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger provides structured logging for one component
type Logger struct {
	component string
	workspace string
}

// New creates a new logger for a component
func New(component string) *Logger {
	return &Logger{component: component}
}

// WithWorkspace sets the workspace context
func (l *Logger) WithWorkspace(workspace string) *Logger {
	return &Logger{
		component: l.component,
		workspace: workspace,
	}
}

func (l *Logger) zap() *zap.Logger {
	baseMu.RLock()
	z := base
	baseMu.RUnlock()

	z = z.With(zap.String("component", l.component))
	if l.workspace != "" {
		z = z.With(zap.String("workspace", l.workspace))
	}
	return z
}

func fields(extra map[string]any, err error) []zap.Field {
	fs := make([]zap.Field, 0, len(extra)+1)
	for k, v := range extra {
		fs = append(fs, zap.Any(k, v))
	}
	if err != nil {
		fs = append(fs, zap.Error(err))
	}
	return fs
}

// Debug logs a debug event
func (l *Logger) Debug(event string, extra map[string]any) {
	l.zap().Debug(event, fields(extra, nil)...)
}

// Info logs an info event
func (l *Logger) Info(event string, extra map[string]any) {
	l.zap().Info(event, fields(extra, nil)...)
}

// Warn logs a warning event
func (l *Logger) Warn(event string, extra map[string]any, err error) {
	l.zap().Warn(event, fields(extra, err)...)
}

// Error logs an error event
func (l *Logger) Error(event string, extra map[string]any, err error) {
	l.zap().Error(event, fields(extra, err)...)
}

// TimedEvent logs an event with its duration since start
func (l *Logger) TimedEvent(event string, start time.Time, extra map[string]any) {
	fs := fields(extra, nil)
	fs = append(fs, zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	l.zap().Info(event, fs...)
}
