package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// FieldComponent names the subsystem that emitted the entry.
	FieldComponent = "component"
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
)

func New(json bool, debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	encoding := "console"

	if json {
		encoding = "json"
	}

	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "msg",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}
	return cfg.Build()
}

// Component returns a child logger tagged with the component name.
// A nil logger yields a no-op logger so constructors never have to nil-check.
func Component(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(zap.String(FieldComponent, name))
}

// WithProvider attaches the AI provider and model fields, skipping blanks.
func WithProvider(logger *zap.Logger, provider, model string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	fields := make([]zap.Field, 0, 2)
	if p := strings.TrimSpace(provider); p != "" {
		fields = append(fields, zap.String(FieldProvider, p))
	}
	if m := strings.TrimSpace(model); m != "" {
		fields = append(fields, zap.String(FieldModel, m))
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
