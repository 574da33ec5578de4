package commands

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

// ZapLogger adapts a zap logger to kintone.Logger.
type ZapLogger struct {
	logger *zap.SugaredLogger
}

var _ kintone.Logger = (*ZapLogger)(nil)

// NewZapLogger wraps logger.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: logger.Sugar()}
}

// newCLILogger builds a console logger on stderr. verbose lowers the level to
// debug.
func newCLILogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)

	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Development = true
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}

func (l *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debugw(msg, keysAndValues(fields)...)
}

func (l *ZapLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Infow(msg, keysAndValues(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warnw(msg, keysAndValues(fields)...)
}

func (l *ZapLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Errorw(msg, keysAndValues(fields)...)
}

func keysAndValues(fields map[string]interface{}) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	for key, value := range fields {
		out = append(out, key, value)
	}

	return out
}
