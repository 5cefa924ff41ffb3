package feedback

import (
	"strings"

	"go.uber.org/zap"
)

// ZapSink writes diagnostics through a structured logger. Error(_, true)
// logs at error level with a fatal marker; process termination stays with
// the caller.
type ZapSink struct {
	log *zap.Logger
}

func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapSink{log: log}
}

func (z *ZapSink) Info(msg string) {
	if z == nil || z.log == nil {
		return
	}
	z.log.Info(msg)
}

func (z *ZapSink) Warn(msg string) {
	if z == nil || z.log == nil {
		return
	}
	z.log.Warn(msg)
}

func (z *ZapSink) Error(msg string, fatal bool) {
	if z == nil || z.log == nil {
		return
	}
	z.log.Error(msg, zap.Bool("fatal", fatal))
}

// NewLogger builds the process logger: production encoding unless env is a
// development flavor, level from the given name (default info).
func NewLogger(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
