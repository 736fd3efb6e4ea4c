package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled, structured logger handed to every component.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	// With creates a child logger with additional fields. The child shares
	// the parent's level.
	With(fields ...zap.Field) Logger
	// Named creates a child logger with the given name.
	Named(name string) Logger

	// SetLevel switches the minimum level of this logger and every logger
	// derived from it. Unknown names fall back to info.
	SetLevel(level string)
	// Level returns the current minimum level name.
	Level() string

	// Zap returns the underlying *zap.Logger.
	Zap() *zap.Logger
	// Sync flushes any buffered log entries.
	Sync() error
}

// zapLogger wraps *zap.Logger to implement the Logger interface.
type zapLogger struct {
	zl    *zap.Logger
	sl    *zap.SugaredLogger
	level zap.AtomicLevel
}

// NewLogger creates a new Logger from the given Config.
func NewLogger(config Config) Logger {
	config.applyDefaults()

	level := zap.NewAtomicLevelAt(config.TransportLevel())
	zl := zap.New(newCore(config, level))
	if config.ShowLineNumber {
		zl = zl.WithOptions(zap.AddCaller(), zap.AddCallerSkip(1))
	}
	return &zapLogger{zl: zl, sl: zl.Sugar(), level: level}
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return &zapLogger{zl: zap.NewNop(), sl: zap.NewNop().Sugar(), level: zap.NewAtomicLevel()}
}

// FromZap wraps an existing *zap.Logger. SetLevel on the result only
// affects loggers whose core was built with the returned level.
func FromZap(zl *zap.Logger) Logger {
	if zl == nil {
		return NewNop()
	}
	level := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	for l := zapcore.DebugLevel; l <= zapcore.FatalLevel; l++ {
		if zl.Core().Enabled(l) {
			level.SetLevel(l)
			break
		}
	}
	return &zapLogger{zl: zl, sl: zl.Sugar(), level: level}
}

// OrNop returns l, or the nop logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

func (l *zapLogger) Debug(msg string, fields ...zap.Field) { l.zl.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...zap.Field)  { l.zl.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...zap.Field)  { l.zl.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...zap.Field) { l.zl.Error(msg, fields...) }

func (l *zapLogger) Debugf(format string, args ...any) { l.sl.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...any)  { l.sl.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...any)  { l.sl.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...any) { l.sl.Errorf(format, args...) }

func (l *zapLogger) With(fields ...zap.Field) Logger {
	zl := l.zl.With(fields...)
	return &zapLogger{zl: zl, sl: zl.Sugar(), level: l.level}
}

func (l *zapLogger) Named(name string) Logger {
	zl := l.zl.Named(name)
	return &zapLogger{zl: zl, sl: zl.Sugar(), level: l.level}
}

func (l *zapLogger) SetLevel(level string) {
	l.level.SetLevel(ParseLevel(level))
}

func (l *zapLogger) Level() string {
	return l.level.Level().String()
}

func (l *zapLogger) Zap() *zap.Logger {
	return l.zl
}

func (l *zapLogger) Sync() error {
	return l.zl.Sync()
}

var _ Logger = (*zapLogger)(nil)
