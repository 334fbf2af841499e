// Package log wraps a process-wide zap sugared logger.
package log

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cinebot-go/internal/config"
)

// FileName is the log file created under log.output_path.
const FileName = "cinebot.log"

// sugar is a no-op until Init runs so packages stay usable from tests.
var sugar = zap.NewNop().Sugar()

// Init builds the process logger from the log section of the config.
// An unknown level falls back to info.
func Init(cfg config.LogConfig) error {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	badLevel := level.UnmarshalText([]byte(cfg.Level)) != nil
	if badLevel {
		level.SetLevel(zap.InfoLevel)
	}

	zapConfig := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapConfig.Level = level
	zapConfig.EncoderConfig.TimeKey = "time"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.OutputPaths = []string{"stdout"}
	if cfg.OutputPath != "" {
		if err := os.MkdirAll(cfg.OutputPath, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, filepath.Join(cfg.OutputPath, FileName))
	}

	logger, err := zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	replace(logger)
	if badLevel {
		sugar.Warnf("unknown log level %q, using info", cfg.Level)
	}
	return nil
}

func replace(logger *zap.Logger) {
	sugar = logger.Sugar()
}

// With returns a logger that adds keysAndValues to every entry, e.g. the
// request id of an HTTP request.
func With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return sugar.Desugar().WithOptions(zap.AddCallerSkip(-1)).Sugar().With(keysAndValues...)
}

func Debugf(template string, args ...interface{}) {
	sugar.Debugf(template, args...)
}

func Info(msg string) {
	sugar.Info(msg)
}

func Infof(template string, args ...interface{}) {
	sugar.Infof(template, args...)
}

// Infow logs a structured message with key/value pairs.
func Infow(msg string, keysAndValues ...interface{}) {
	sugar.Infow(msg, keysAndValues...)
}

func Warnf(template string, args ...interface{}) {
	sugar.Warnf(template, args...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	sugar.Warnw(msg, keysAndValues...)
}

// Error logs msg at error level with err attached.
func Error(msg string, err error) {
	sugar.Errorw(msg, "error", err)
}

func Errorf(template string, args ...interface{}) {
	sugar.Errorf(template, args...)
}

// Fatal logs msg with err attached and exits the process.
func Fatal(msg string, err error) {
	sugar.Fatalw(msg, "error", err)
}

func Fatalf(template string, args ...interface{}) {
	sugar.Fatalf(template, args...)
}

// Sync flushes buffered entries; call it before exit.
func Sync() {
	_ = sugar.Sync()
}
