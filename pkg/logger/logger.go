// Package logger содержит настройку логгера.
package logger

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options настройки логгера
type Options struct {
	Level string
	// Path пустой: файловый вывод по умолчанию
	Path string
}

// FromEnv читает LOG_LEVEL и LOG_PATH
func FromEnv() Options {
	return Options{
		Level: os.Getenv("LOG_LEVEL"),
		Path:  os.Getenv("LOG_PATH"),
	}
}

// New создает логгер с выводом в stdout и в ротируемый файл
func New(opts Options) *zap.Logger {
	level := ParseLevel(opts.Level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	path := opts.Path
	if path == "" {
		path = defaultLogPath()
	}

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(encoder, zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}), level),
	)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// ParseLevel переводит имя уровня в zapcore.Level; неизвестное имя дает info
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// defaultLogPath выбирает $APP_DATA_DIR/app.log, затем logs/app.log
func defaultLogPath() string {
	if dataDir := os.Getenv("APP_DATA_DIR"); dataDir != "" {
		if err := os.MkdirAll(dataDir, 0o755); err == nil {
			return filepath.Join(dataDir, "app.log")
		}
	}

	if err := os.MkdirAll("logs", 0o755); err == nil {
		return filepath.Join("logs", "app.log")
	}

	return "app.log"
}
