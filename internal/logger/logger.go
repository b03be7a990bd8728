package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log = newLogger(zerolog.InfoLevel)
)

func newLogger(level zerolog.Level) zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(writer).With().Timestamp().Logger().Level(level)
}

// SetVerbose 切换 debug 级别输出。
func SetVerbose(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	mu.Lock()
	log = newLogger(level)
	mu.Unlock()
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// 事件方法是指针接收者，函数返回值不可寻址，必须先落到局部变量。
func Debugf(format string, args ...any) { l := current(); l.Debug().Msgf(format, args...) }
func Infof(format string, args ...any)  { l := current(); l.Info().Msgf(format, args...) }
func Warnf(format string, args ...any)  { l := current(); l.Warn().Msgf(format, args...) }
func Errorf(format string, args ...any) { l := current(); l.Error().Msgf(format, args...) }
