package logger

import (
	"os"

	"go.uber.org/zap"
)

type ZapLogger struct {
	log *zap.SugaredLogger
}

// NewZap wraps a zap config into a Logger. The caller skip accounts for the
// package-level helpers so call sites are reported correctly.
func NewZap(config zap.Config) (*ZapLogger, error) {
	l, err := config.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{log: l.Sugar()}, nil
}

// newDefaultZap picks the encoder from LOG_ENV: production gets JSON at info
// level, anything else the development console encoder at debug level.
func newDefaultZap() Logger {
	var config zap.Config
	if os.Getenv("LOG_ENV") == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	l, err := NewZap(config)
	if err != nil {
		// zap only fails here on a broken output path, which the stock
		// configs never set.
		panic(err)
	}
	return l
}

func (l *ZapLogger) Debug(msg string, values ...any) {
	l.log.Debugw(msg, values...)
}

func (l *ZapLogger) Info(msg string, values ...any) {
	l.log.Infow(msg, values...)
}

func (l *ZapLogger) Warn(msg string, values ...any) {
	l.log.Warnw(msg, values...)
}

func (l *ZapLogger) Error(msg string, values ...any) {
	l.log.Errorw(msg, values...)
}

func (l *ZapLogger) Panic(msg string, values ...any) {
	l.log.Panicw(msg, values...)
}

// Printf satisfies fasthttp's server Logger.
func (l *ZapLogger) Printf(format string, args ...any) {
	l.log.Infof(format, args...)
}
