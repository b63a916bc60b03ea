// Package xlog is the logging facade used throughout flamekit. It mirrors
// the structured, named-logger style of the collapse and render packages:
// callers get a Logger, attach fields and a component name, and never touch
// the backing implementation directly.
package xlog

import "go.uber.org/zap"

// Logger is the structured logger handed to every collapser, the renderer,
// and the CLI layer. It has no context.Context parameter: cancellation of
// the parallel collapse path is carried by the context passed to
// pkg/collapse's CollapseFileParallel functions, not by the logger.
type Logger interface {
	With(fields ...zap.Field) Logger
	WithName(name string) Logger

	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

type logger struct {
	z *zap.Logger
}

var _ Logger = (*logger)(nil)

// New wraps a *zap.Logger.
func New(z *zap.Logger) Logger {
	return &logger{z: z}
}

// NewNop returns a Logger that discards everything, used by library code
// exercised from tests that don't want to configure a sink.
func NewNop() Logger {
	return &logger{z: zap.NewNop()}
}

// NewCLI builds the logger used by the command-line front-ends: leveled,
// console-encoded, written to stderr. level is one of "debug", "info",
// "warn", "error"; any other value is treated as "info".
func NewCLI(level string) (Logger, error) {
	var lvl zap.AtomicLevel
	switch level {
	case "debug":
		lvl = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "", "info":
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		lvl = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		lvl = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return New(z), nil
}

func (l *logger) With(fields ...zap.Field) Logger {
	return &logger{z: l.z.With(fields...)}
}

func (l *logger) WithName(name string) Logger {
	return &logger{z: l.z.Named(name)}
}

func (l *logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }
