package common

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 运行环境
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// ZapLogger 基于zap的Logger实现,级别可以在运行期调整
type ZapLogger struct {
	level  zap.AtomicLevel
	logger *zap.SugaredLogger
}

// Debugf 记录debug日志
func (l *ZapLogger) Debugf(format string, params ...interface{}) {
	l.logger.Debugf(format, params...)
}

// DebugEnabled 是否记录debug日志
func (l *ZapLogger) DebugEnabled() bool {
	return l.level.Enabled(zap.DebugLevel)
}

// Infof 记录info日志
func (l *ZapLogger) Infof(format string, params ...interface{}) {
	l.logger.Infof(format, params...)
}

// InfoEnabled 是否记录info日志
func (l *ZapLogger) InfoEnabled() bool {
	return l.level.Enabled(zap.InfoLevel)
}

// Warnf 记录warn日志
func (l *ZapLogger) Warnf(format string, params ...interface{}) {
	l.logger.Warnf(format, params...)
}

// WarnEnabled 是否记录warn日志
func (l *ZapLogger) WarnEnabled() bool {
	return l.level.Enabled(zap.WarnLevel)
}

// Errorf 记录error日志
func (l *ZapLogger) Errorf(format string, params ...interface{}) {
	l.logger.Errorf(format, params...)
}

// ErrorEnabled 是否记录error日志
func (l *ZapLogger) ErrorEnabled() bool {
	return l.level.Enabled(zap.ErrorLevel)
}

// Criticalf 记录严重错误,不会panic
func (l *ZapLogger) Criticalf(format string, params ...interface{}) {
	l.logger.DPanicf(format, params...)
}

// Sync 刷新缓冲的日志
func (l *ZapLogger) Sync() {
	_ = l.logger.Sync()
}

// SetLevel 调整日志级别,无效的级别被忽略
func (l *ZapLogger) SetLevel(level LogLevel) {
	zapl, ok := level.zapLevel()
	if ok {
		l.level.SetLevel(zapl)
	}
}

func newEncoder(logConfig *LogConfig) (zapcore.Encoder, zapcore.Level) {
	if logConfig.Env != EnvProduction {
		return zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.DebugLevel
	}
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	if logConfig.JSON {
		return zapcore.NewJSONEncoder(config), zapcore.InfoLevel
	}
	return zapcore.NewConsoleEncoder(config), zapcore.InfoLevel
}

func newWriter(logConfig *LogConfig) zapcore.WriteSyncer {
	if logConfig.FileName == "" {
		return zapcore.AddSync(os.Stderr)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   logConfig.FileName,
		MaxSize:    logConfig.MaxSize,
		MaxBackups: logConfig.MaxBackups,
		MaxAge:     logConfig.MaxAge,
		LocalTime:  true,
	})
}

// NewZapLogger 按配置创建ZapLogger:production环境默认info级别,可输出JSON;
// 其他环境使用console格式和debug级别.配置了FileName时由lumberjack按大小滚动
func NewZapLogger(logConfig *LogConfig) *ZapLogger {
	if logConfig == nil {
		logConfig = &LogConfig{}
	}
	encoder, defaultLevel := newEncoder(logConfig)
	if zapl, ok := LogLevel(logConfig.Level).zapLevel(); ok {
		defaultLevel = zapl
	}
	level := zap.NewAtomicLevelAt(defaultLevel)

	logger := zap.New(zapcore.NewCore(encoder, newWriter(logConfig), level))
	if !logConfig.NoCaller {
		// 跳过包级函数和ZapLogger两层
		logger = logger.WithOptions(zap.AddCaller(), zap.AddCallerSkip(2))
	}
	return &ZapLogger{logger: logger.Sugar(), level: level}
}
