// Package logger builds the zap logger shared by calo's components.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where and how verbosely calo logs.
type Options struct {
	// Path is a log file. Empty means stderr.
	Path  string
	Debug bool
	// Quiet drops info messages. CLI commands set it so stderr only
	// carries warnings next to their regular output.
	Quiet bool
}

// New returns a logger for opts. The TUI passes a file path because it owns
// the terminal; CLI commands log to stderr.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		level := zapcore.InfoLevel
		if opts.Quiet {
			level = zapcore.WarnLevel
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Sampling = nil
	}

	out := "stderr"
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		out = opts.Path
	}
	cfg.OutputPaths = []string{out}
	cfg.ErrorOutputPaths = []string{out}

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

// Close flushes buffered entries. Sync errors on stderr/ttys are ignored.
func Close(log *zap.Logger) {
	_ = log.Sync()
}
