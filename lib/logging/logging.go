// Package logging builds the zap logger used by the commands.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EncodingJSON    = "json"
	EncodingConsole = "console"
)

// New builds a production logger with the given level and encoding.
// The console encoding uses colored, human readable levels and times.
func New(level string, encoding string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logConfig := zap.NewProductionConfig()
	logConfig.Level = zap.NewAtomicLevelAt(lvl)
	switch encoding {
	case EncodingJSON:
		logConfig.Encoding = EncodingJSON
	case EncodingConsole:
		logConfig.Encoding = EncodingConsole
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		logConfig.Sampling = nil
	default:
		return nil, fmt.Errorf("unknown log encoding %q", encoding)
	}

	return logConfig.Build()
}
