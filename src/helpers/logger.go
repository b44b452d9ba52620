package helpers

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the mapper's logger. Debug switches to the development
// config; verbose lowers the level to debug.
func NewLogger(verbose, debug bool) *zap.SugaredLogger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// NewNopLogger returns a logger that discards everything. Used by tests and
// by callers that wire their own logging.
func NewNopLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
