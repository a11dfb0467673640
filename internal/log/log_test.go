package log

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for s, want := range tests {
		if got := LevelFromString(s); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestNewNopDoesNotPanic(t *testing.T) {
	l := NewNop()
	l.Info("hello", String("k", "v"))
	l.With(Int("n", 1)).Warn("child")
	if err := l.Sync(); err != nil {
		t.Errorf("sync: %v", err)
	}
}
