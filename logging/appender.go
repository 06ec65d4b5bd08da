package logging

import (
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewStdoutAppender returns an appender writing console-encoded entries to stdout. Level
// filtering happens in the logger, so the core itself accepts everything.
func NewStdoutAppender() Appender {
	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(NewEncoderConfig()),
		zapcore.Lock(os.Stdout),
		zapcore.DebugLevel,
	)
}

// FileAppenderConfig describes a size-rotated log file.
type FileAppenderConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	Compress   bool   `json:"compress,omitempty"`
}

// NewFileAppender returns an appender writing JSON entries to a rotating file.
func NewFileAppender(cfg FileAppenderConfig) Appender {
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 64
	}
	writer := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	return zapcore.NewCore(
		zapcore.NewJSONEncoder(NewEncoderConfig()),
		zapcore.AddSync(writer),
		zapcore.DebugLevel,
	)
}
