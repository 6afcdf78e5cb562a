package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "calo.log")

	log, err := New(Options{Path: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("pipeline finished")
	Close(log)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "pipeline finished") {
		t.Errorf("log file = %q, want message", data)
	}
}

func TestDebugLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calo.log")

	log, err := New(Options{Path: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug should be disabled by default")
	}

	dbg, err := New(Options{Path: path, Debug: true})
	if err != nil {
		t.Fatalf("New debug: %v", err)
	}
	if !dbg.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug should be enabled with Debug option")
	}
}

func TestQuietDropsInfo(t *testing.T) {
	log, err := New(Options{Path: filepath.Join(t.TempDir(), "calo.log"), Quiet: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled when quiet")
	}
	if !log.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warnings should still be logged when quiet")
	}
}
