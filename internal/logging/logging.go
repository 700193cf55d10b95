// Package logging builds the zap loggers used by the command line
// tool.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing at level or above to stderr.
// Development loggers are human readable, the others emit JSON.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// CircleFields flattens a circle into log fields under prefix.
func CircleFields(prefix string, x, y, r float64) []zap.Field {
	return []zap.Field{
		zap.Float64(prefix+".x", x),
		zap.Float64(prefix+".y", y),
		zap.Float64(prefix+".r", r),
	}
}
