package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the process-wide logger.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string
	// File, when set, additionally writes JSON logs to a rotated local file.
	File string
}

// ConfigFromEnv reads LOG_LEVEL and LOG_FILE.
func ConfigFromEnv() Config {
	return Config{
		Level: os.Getenv("LOG_LEVEL"),
		File:  os.Getenv("LOG_FILE"),
	}
}

// encoderConfig produces entries Cloud Logging parses as structured payloads.
func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.MessageKey = "message"
	cfg.LevelKey = "severity"
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func parseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// New builds a JSON logger writing to stdout and, optionally, a rotated file.
func New(cfg Config) *zap.Logger {
	level := parseLevel(cfg.Level)
	encoder := zapcore.NewJSONEncoder(encoderConfig())

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
	}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // Megabytes
			MaxBackups: 5,
			MaxAge:     30, // Days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// Setup builds the logger from the environment and installs it as the global logger.
func Setup() *zap.Logger {
	logger := New(ConfigFromEnv())
	zap.ReplaceGlobals(logger)
	return logger
}
