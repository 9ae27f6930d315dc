package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log *zap.Logger

func Init(env string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if env != "production" {
		config = zap.NewDevelopmentConfig()
	}

	l, err := config.Build()
	if err != nil {
		panic(err)
	}

	Log = l
	return l
}
