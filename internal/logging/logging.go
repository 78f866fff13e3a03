// Package logging builds the process-wide zap logger used by every
// Sentinel component. Components receive a *zap.Logger by handle from
// bootstrap; nothing in the codebase reaches for a package-level global.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the root logger.
type Options struct {
	// Debug enables debug-level logging and human-readable console encoding.
	Debug bool
	// JSON forces JSON encoding even outside Debug mode (used by --json CLI
	// invocations, so stdout stays clean for machine consumption while logs
	// still go to stderr structured).
	JSON bool
}

// New builds a *zap.Logger writing to stderr so stdout remains available
// for command output.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if !opts.JSON && opts.Debug {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// Noop returns a logger that discards everything, for tests.
func Noop() *zap.Logger { return zap.NewNop() }
