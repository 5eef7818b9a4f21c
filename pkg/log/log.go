package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// LevelEnv overrides the minimum log level, e.g. RRSETS_LOG_LEVEL=debug.
const LevelEnv = "RRSETS_LOG_LEVEL"

// NewLogger returns the production logger named "rrsets". Package loggers are
// derived from it with Named.
func NewLogger(options ...zap.Option) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if s := os.Getenv(LevelEnv); s != "" {
		level, err := zap.ParseAtomicLevel(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", LevelEnv, err)
		}
		cfg.Level = level
	}
	options = append([]zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zap.DPanicLevel),
	}, options...)
	logger, err := cfg.Build(options...)
	if err != nil {
		return nil, err
	}
	return logger.Named("rrsets"), nil
}

func MustNewLogger(options ...zap.Option) *zap.Logger {
	l, err := NewLogger(options...)
	if err != nil {
		panic(fmt.Errorf("could not create new logger: %w", err))
	}
	return l
}
