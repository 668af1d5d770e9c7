// Package logging builds the zap.Logger every docstore component shares,
// grounded on the teacher's NewStructuredLogger
// (internal/errors/logging.go): development/production zap.Config
// selection by environment, trimmed of the teacher's HTTP request-context
// field extraction since this repo has no HTTP layer.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger appropriate for environment ("production" or
// anything else, treated as development) and level (parsed via
// zapcore.ParseLevel; an unparseable level falls back to Info).
func New(environment, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl := zapcore.InfoLevel
	if level != "" {
		if parsed, err := zapcore.ParseLevel(level); err == nil {
			lvl = parsed
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	if environment == "production" {
		cfg.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
	}

	return cfg.Build(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// Operation returns the fields every store.DocumentStore log line carries:
// the verb and target collection, the same consistent-key-set discipline
// the teacher's generic_repository.go logging uses
// (zap.String("operation", ...), zap.String("entity_type", ...)).
func Operation(verb, collection string) []zap.Field {
	return []zap.Field{
		zap.String("verb", verb),
		zap.String("collection", collection),
	}
}
