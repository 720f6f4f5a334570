// Package logger is the logging seam for the strike client. Log lines are
// key-value pairs written through a zap sugared logger. Embedding
// applications that keep their own logging stack can route everything the
// client emits by swapping the active logger with Set.
package logger

import "sync"

type Logger interface {
	Debug(msg string, values ...any)
	Info(msg string, values ...any)
	Warn(msg string, values ...any)
	Error(msg string, values ...any)
	Panic(msg string, values ...any)
	Printf(format string, args ...any)
}

var (
	mu     sync.RWMutex
	active Logger
)

// Set replaces the active logger. Passing nil restores the default.
func Set(l Logger) {
	mu.Lock()
	active = l
	mu.Unlock()
}

// GetLogger returns the active logger, building the zap default on first use.
func GetLogger() Logger {
	mu.RLock()
	l := active
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if active == nil {
		active = newDefaultZap()
	}
	return active
}

func Debug(msg string, values ...any) {
	GetLogger().Debug(msg, values...)
}

func Info(msg string, values ...any) {
	GetLogger().Info(msg, values...)
}

func Warn(msg string, values ...any) {
	GetLogger().Warn(msg, values...)
}

func Error(msg string, values ...any) {
	GetLogger().Error(msg, values...)
}

func Panic(msg string, values ...any) {
	GetLogger().Panic(msg, values...)
}
