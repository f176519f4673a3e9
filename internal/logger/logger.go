package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lotterydesk/lottery-api/internal/config"
)

var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// Init replaces the global zap logger. Production uses JSON, everything else
// a coloured console encoder. With conf.File set, JSON lines are also
// written to a rotating file.
func Init(environment string, conf *config.LogConfig) error {
	if conf == nil {
		conf = &config.LogConfig{Level: "info"}
	}

	if err := SetLevel(conf.Level); err != nil {
		return err
	}

	var consoleEncoder zapcore.Encoder
	if environment == "production" {
		consoleEncoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encoderConf := zap.NewDevelopmentEncoderConfig()
		encoderConf.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEncoder = zapcore.NewConsoleEncoder(encoderConf)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level),
	}

	if conf.File != "" {
		file := &lumberjack.Logger{
			Filename:   conf.File,
			MaxSize:    conf.MaxSizeMB,
			MaxBackups: conf.MaxBackups,
			MaxAge:     conf.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(file),
			level,
		))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	zap.ReplaceGlobals(l)

	return nil
}

// SetLevel changes the level of the global logger in place.
func SetLevel(text string) error {
	if text == "" {
		text = "info"
	}

	var l zapcore.Level
	if err := l.UnmarshalText([]byte(text)); err != nil {
		return fmt.Errorf("invalid log level %q -> %w", text, err)
	}
	level.SetLevel(l)

	return nil
}

func Level() zapcore.Level {
	return level.Level()
}
