// Package log provides dupefind's structured, leveled operational logger:
// a go.uber.org/zap wrapper with console output. Dupefind
// keeps this console-only (a CLI/daemon, not a file-backed tool),
// with field-constructor aliases and simple level parsing.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field aliases zap.Field so callers never import zap directly.
type Field = zap.Field

// Field constructors, re-exported from zap so callers never import it directly.
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Bool     = zap.Bool
	Duration = zap.Duration
	Error    = zap.Error
)

// Logger wraps zap.Logger with dupefind's leveled-console setup.
type Logger struct {
	zap *zap.Logger
}

// LevelFromString converts a configuration-surface level name to a
// zapcore.Level, defaulting to Info for anything unrecognized.
func LevelFromString(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New creates a console logger at the given level, human-readable with
// colored level names, suited to interactive CLI tools.
func New(level string) *Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		LevelFromString(level),
	)

	return &Logger{zap: zap.New(core)}
}

// NewNop returns a logger that discards everything, for tests and library
// callers that don't want dupefind's own logging on stderr.
func NewNop() *Logger { return &Logger{zap: zap.NewNop()} }

func (l *Logger) Debug(msg string, fields ...Field) { l.zap.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.zap.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.zap.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.zap.Error(msg, fields...) }

// With returns a child logger carrying the given fields on every call.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{zap: l.zap.With(fields...)}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.zap.Sync() }
