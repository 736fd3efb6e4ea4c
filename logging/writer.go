package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newFileWriter returns the rotating file sink under config.Director.
func newFileWriter(config Config) *lumberjack.Logger {
	_ = os.MkdirAll(config.Director, 0o755)
	return &lumberjack.Logger{
		Filename:   filepath.Join(config.Director, config.FileName),
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
		LocalTime:  true,
	}
}

// newWriteSyncer combines stdout and the rotated file according to config.
// It returns nil when both sinks are disabled.
func newWriteSyncer(config Config) zapcore.WriteSyncer {
	var sinks []zapcore.WriteSyncer
	if config.LogInTerminal {
		sinks = append(sinks, zapcore.Lock(zapcore.AddSync(os.Stdout)))
	}
	if config.LogInFile {
		sinks = append(sinks, zapcore.AddSync(newFileWriter(config)))
	}
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	default:
		return zapcore.NewMultiWriteSyncer(sinks...)
	}
}
