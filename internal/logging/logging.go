// Package logging builds the application's zap loggers.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures logger construction.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string

	// Format is "json" or "console". Empty selects json.
	Format string

	// Development enables stack traces on warnings and caller annotations.
	Development bool

	// OutputPaths overrides the destinations. Defaults to stderr.
	OutputPaths []string
}

// ParseLevel parses a level name. Unknown names are an error.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", s)
	}
}

// New builds a logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	logger, _, err := Build(cfg)
	return logger, err
}

// Build is like New but also returns the logger's level, which can be
// changed while the logger is in use.
func Build(cfg Config) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	atom := zap.NewAtomicLevelAt(level)

	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = atom

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		zc.Encoding = "json"
	case "console", "text":
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	default:
		return nil, zap.AtomicLevel{}, fmt.Errorf("invalid log format %q (must be json or console)", cfg.Format)
	}

	zc.OutputPaths = []string{"stderr"}
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zc.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("building logger: %w", err)
	}
	return logger.Named("mermaidflow"), atom, nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
