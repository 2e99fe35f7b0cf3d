// Package logger holds the process-wide zap logger. Init runs once at
// startup; components receive the logger through their constructors.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global *zap.Logger
	once   sync.Once
)

// Init builds the global logger at the given level. Only the first call
// takes effect.
func Init(level string) error {
	var err error
	once.Do(func() {
		global, err = build(level)
	})
	return err
}

// Get returns the global logger, initializing it from LOG_LEVEL if Init has
// not run yet.
func Get() *zap.Logger {
	if global == nil {
		_ = Init(defaultLevel())
	}
	return global
}

// Sync flushes buffered entries on shutdown.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}

func build(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.CallerKey = "caller"

	return config.Build()
}

// Info logs through the global logger; used by the one-shot binaries that
// never thread a logger around.
func Info(msg string, fields ...zap.Field) {
	Get().Info(msg, fields...)
}

// Fatal logs through the global logger and exits.
func Fatal(msg string, fields ...zap.Field) {
	Get().Fatal(msg, fields...)
}

func defaultLevel() string {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return level
	}
	return "info"
}
