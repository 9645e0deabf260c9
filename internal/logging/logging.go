// Package logging builds the zap logger used across the tool.
//
// The logger writes to stderr by default. When a transcript path is
// configured the same output is appended to that file, mirroring the
// session transcript operators keep for each migration run.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the logger.
type Options struct {
	// Verbose switches the level from info to debug.
	Verbose bool

	// Path is an optional transcript file that receives a copy of all output.
	Path string
}

// New builds a production zap logger from the given options.
// Callers own the returned logger and should defer Sync on it.
func New(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if opts.Verbose {
		cfg.Level.SetLevel(zap.DebugLevel)
	}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if opts.Path != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, opts.Path)
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, opts.Path)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger, nil
}
