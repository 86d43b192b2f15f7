package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Global application logger, set once by Init at process start.
var global *zap.Logger

// Init builds the global logger for the given environment. Production
// gets JSON at info level, everything else a colored console at debug.
func Init(env string) error {
	built, err := newConfig(env).Build()
	if err != nil {
		return err
	}
	global = built
	return nil
}

func newConfig(env string) zap.Config {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// Sync flushes buffered entries. Safe to call before Init.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}

// Get returns the global logger, or a development fallback when Init
// has not run, so library code can log unconditionally.
func Get() *zap.Logger {
	if global == nil {
		fallback, _ := zap.NewDevelopment()
		return fallback
	}
	return global
}
