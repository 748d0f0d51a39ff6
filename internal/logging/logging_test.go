package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"sword-arena/internal/config"
)

// TestNewLevels verifies level parsing and the fallback
func TestNewLevels(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.LoggingConfig
		level zapcore.Level
	}{
		{"console debug", config.LoggingConfig{Level: "debug", Format: "console"}, zapcore.DebugLevel},
		{"json warn", config.LoggingConfig{Level: "warn", Format: "json"}, zapcore.WarnLevel},
		{"bad level falls back", config.LoggingConfig{Level: "loud", Format: "console"}, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if !logger.Core().Enabled(tt.level) {
				t.Errorf("level %v not enabled", tt.level)
			}
			if tt.level > zapcore.DebugLevel && logger.Core().Enabled(tt.level-1) {
				t.Errorf("level below %v should be disabled", tt.level)
			}
		})
	}
}

// TestToFile verifies file output
func TestToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.log")
	logger, err := ToFile(config.LoggingConfig{Level: "info"}, path)
	if err != nil {
		t.Fatalf("ToFile: %v", err)
	}
	logger.Info("⚔️ enemy hit")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "enemy hit") {
		t.Errorf("log file missing entry: %q", data)
	}
}
