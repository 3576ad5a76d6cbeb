// Package logger is the component-scoped structured logger used across
// teammate. Every entry carries a "component" field; call sites attach extra
// context as a field map.
package logger

import (
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var (
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base  atomic.Pointer[zap.Logger]
)

func init() {
	base.Store(newProduction())
}

func newProduction() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// SetLevel changes the minimum level of the process-wide logger.
func SetLevel(l LogLevel) {
	level.SetLevel(toZapLevel(l))
}

// GetLevel returns the current minimum level.
func GetLevel() LogLevel {
	switch level.Level() {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.WarnLevel:
		return WARN
	case zapcore.ErrorLevel:
		return ERROR
	default:
		return INFO
	}
}

// SetLogger replaces the underlying zap logger and returns a function that
// restores the previous one. Used by tests to observe entries.
func SetLogger(l *zap.Logger) (restore func()) {
	prev := base.Swap(l)
	return func() { base.Store(prev) }
}

// Sync flushes buffered entries. Call before process exit.
func Sync() {
	_ = base.Load().Sync()
}

func toZapLevel(l LogLevel) zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func logMessage(l LogLevel, component, message string, fields map[string]any) {
	zl := base.Load()
	zf := make([]zap.Field, 0, len(fields)+1)
	zf = append(zf, zap.String("component", component))

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			zf = append(zf, zap.NamedError(k, err))
			continue
		}
		zf = append(zf, zap.Any(k, fields[k]))
	}

	switch l {
	case DEBUG:
		zl.Debug(message, zf...)
	case WARN:
		zl.Warn(message, zf...)
	case ERROR:
		zl.Error(message, zf...)
	default:
		zl.Info(message, zf...)
	}
}

func DebugC(component, message string) {
	logMessage(DEBUG, component, message, nil)
}

func DebugCF(component, message string, fields map[string]any) {
	logMessage(DEBUG, component, message, fields)
}

func InfoC(component, message string) {
	logMessage(INFO, component, message, nil)
}

func InfoCF(component, message string, fields map[string]any) {
	logMessage(INFO, component, message, fields)
}

func WarnC(component, message string) {
	logMessage(WARN, component, message, nil)
}

func WarnCF(component, message string, fields map[string]any) {
	logMessage(WARN, component, message, fields)
}

func ErrorC(component, message string) {
	logMessage(ERROR, component, message, nil)
}

func ErrorCF(component, message string, fields map[string]any) {
	logMessage(ERROR, component, message, fields)
}
