// Package logging builds the process-wide zap logger and provides
// helpers for sanitizing query text before it is logged.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the root logger for the given environment. "local" gets a
// human-readable development encoder at debug level; anything else gets
// production JSON at info level.
func New(env string) (*zap.Logger, error) {
	if env == "local" {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}
	return zap.NewProduction()
}

// NewNop returns a no-op logger for tests.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
