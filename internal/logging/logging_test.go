package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{"", zapcore.InfoLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewWritesToOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	logger, err := New(Config{Level: "debug", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Named("coordinator").Debug("commit recorded")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "commit recorded") {
		t.Errorf("log output missing message: %s", line)
	}
	if !strings.Contains(line, "mermaidflow.coordinator") {
		t.Errorf("log output missing logger name: %s", line)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("New() accepted invalid level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("New() accepted invalid format")
	}
}

func TestNop(t *testing.T) {
	Nop().Info("discarded")
}

func TestBuildLevelIsAdjustable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	logger, level, err := Build(Config{Level: "warn", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	logger.Info("hidden")
	level.SetLevel(zapcore.InfoLevel)
	logger.Info("shown")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Error("message below the initial level was written")
	}
	if !strings.Contains(string(data), "shown") {
		t.Error("message at the raised level was not written")
	}
}
