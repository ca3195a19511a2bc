// Package logging builds the process-wide zap logger.
package logging

import (
	"go.uber.org/zap"
)

// NewLogger returns a structured logger. Production config emits JSON;
// development emits console output with stack traces on warnings.
// Unparseable levels fall back to info.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = lvl

	return cfg.Build()
}
