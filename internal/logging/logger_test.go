package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger_CreatesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	l, err := NewLogger(dir, false)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	l.Info("hello")
	l.Sync()

	if _, err := os.Stat(filepath.Join(dir, "pulsemon.log")); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
}

func TestNewLogger_DebugLevel(t *testing.T) {
	l, err := NewLogger(t.TempDir(), true)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug logger must enable debug level")
	}
}
