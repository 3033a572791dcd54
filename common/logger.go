package common

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// LogLevel 日志级别
type LogLevel string

// 支持的日志级别
const (
	Debug    LogLevel = "debug"
	Info     LogLevel = "info"
	Warn     LogLevel = "warn"
	Error    LogLevel = "error"
	Critical LogLevel = "critical"
)

func (p LogLevel) zapLevel() (zapcore.Level, bool) {
	switch LogLevel(strings.ToLower(string(p))) {
	case Debug:
		return zapcore.DebugLevel, true
	case Info:
		return zapcore.InfoLevel, true
	case Warn:
		return zapcore.WarnLevel, true
	case Error:
		return zapcore.ErrorLevel, true
	case Critical:
		return zapcore.DPanicLevel, true
	}
	return zapcore.InfoLevel, false
}

// Logger 日志接口
type Logger interface {
	Debugf(format string, params ...interface{})
	DebugEnabled() bool

	Infof(format string, params ...interface{})
	InfoEnabled() bool

	Warnf(format string, params ...interface{})
	WarnEnabled() bool

	Errorf(format string, params ...interface{})
	ErrorEnabled() bool

	Criticalf(format string, params ...interface{})

	SetLevel(level LogLevel)
	Sync()
}

var (
	loggerLock sync.RWMutex
	logger     Logger = NewZapLogger(&LogConfig{Env: EnvDevelopment})
)

func currentLogger() Logger {
	loggerLock.RLock()
	defer loggerLock.RUnlock()
	return logger
}

// SetLogger 替换全局的Logger
func SetLogger(l Logger) {
	if l == nil {
		return
	}
	loggerLock.Lock()
	old := logger
	logger = l
	loggerLock.Unlock()
	old.Sync()
}

// initLogger 使用配置初始化全局Logger
func initLogger(config *LogConfig) error {
	SetLogger(NewZapLogger(config))
	return nil
}

// SetLogLevel 设置全局日志级别,无效的级别被忽略
func SetLogLevel(level LogLevel) {
	currentLogger().SetLevel(level)
}

// Debugf debug
func Debugf(format string, params ...interface{}) {
	currentLogger().Debugf(format, params...)
}

// DebugEnabled debug是否开启
func DebugEnabled() bool {
	return currentLogger().DebugEnabled()
}

// Infof info
func Infof(format string, params ...interface{}) {
	currentLogger().Infof(format, params...)
}

// InfoEnabled info是否开启
func InfoEnabled() bool {
	return currentLogger().InfoEnabled()
}

// Warnf warn
func Warnf(format string, params ...interface{}) {
	currentLogger().Warnf(format, params...)
}

// WarnEnabled warn是否开启
func WarnEnabled() bool {
	return currentLogger().WarnEnabled()
}

// Errorf error
func Errorf(format string, params ...interface{}) {
	currentLogger().Errorf(format, params...)
}

// ErrorEnabled error是否开启
func ErrorEnabled() bool {
	return currentLogger().ErrorEnabled()
}

// Criticalf critical
func Criticalf(format string, params ...interface{}) {
	currentLogger().Criticalf(format, params...)
}

// Logf 按照level记录日志
func Logf(level LogLevel, format string, params ...interface{}) {
	l := currentLogger()
	switch level {
	case Debug:
		l.Debugf(format, params...)
	case Warn:
		l.Warnf(format, params...)
	case Error:
		l.Errorf(format, params...)
	case Critical:
		l.Criticalf(format, params...)
	default:
		l.Infof(format, params...)
	}
}

// SyncLog flush缓冲的日志
func SyncLog() {
	currentLogger().Sync()
}
