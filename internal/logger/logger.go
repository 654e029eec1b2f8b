package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger. In production mode the console gets JSON;
// otherwise it is human readable. When file is set, JSON records are also
// written there and rotated.
func New(mode, file string) (*zap.Logger, error) {
	var cfg zap.Config
	if mode == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stdout"}

	if file == "" {
		return cfg.Build(zap.AddCaller())
	}

	rotated := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    64,
		MaxBackups: 7,
		MaxAge:     7,
		Compress:   false,
	}
	console := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	if mode == "production" {
		console = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(rotated), cfg.Level),
		zapcore.NewCore(console, zapcore.AddSync(os.Stdout), cfg.Level),
	)
	return zap.New(core, zap.AddCaller()), nil
}
