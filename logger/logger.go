package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 是全局可用的 SugaredLogger；Init 之前为 no-op
var Log = zap.NewNop().Sugar()

// Init 初始化 zap 日志到本地文件（支持滚动）
// filePath: 日志文件路径，如 "gamelink.log"；level: debug/info/warn/error
// console 为 true 时同时输出到 stderr
func Init(filePath string, level string, console bool) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}

	// 文件滚动策略：10MB 每文件，保留3个备份，最多7天
	lj := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   false,
	}

	encoder := zapcore.NewConsoleEncoder(encoderConfig())
	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.AddSync(lj), lvl)}
	if console {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), lvl))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar()
	return nil
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
}

// Named 返回带组件名的子 logger
func Named(name string) *zap.SugaredLogger {
	return Log.Named(name)
}

// OrNop 组件构造时使用：未注入 logger 时返回 no-op
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}

// Sync 清理和同步缓冲
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
