package logger

import (
	"context"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// loggerName is the name assigned to the application logger.
const loggerName = "ripstream"

var (
	//nolint:gochecknoglobals // Global logger is the intended usage pattern for this package.
	globalLogger *zap.SugaredLogger

	//nolint:gochecknoglobals // Level handle shared with the global logger to allow runtime changes.
	globalLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	//nolint:gochecknoglobals // Protects replacement of the global logger.
	globalMutex sync.RWMutex
)

//nolint:gochecknoinits // The logger must exist before any package-level code logs.
func init() {
	globalLogger = New(globalLevel)
}

// New creates a new SugaredLogger writing human-readable output to stderr.
// If level is nil, the package-wide atomic level is used.
func New(level zapcore.LevelEnabler, options ...zap.Option) *zap.SugaredLogger {
	if level == nil {
		level = globalLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		level,
	)

	return zap.New(core, options...).Named(loggerName).Sugar()
}

// Logger returns the current global logger.
func Logger() *zap.SugaredLogger {
	globalMutex.RLock()
	defer globalMutex.RUnlock()

	return globalLogger
}

// SetLogger replaces the global logger.
func SetLogger(l *zap.SugaredLogger) {
	globalMutex.Lock()
	defer globalMutex.Unlock()

	globalLogger = l
}

// SetLevel changes the logging level of the global logger.
func SetLevel(level zapcore.Level) {
	globalLevel.SetLevel(level)
}

// Level returns the current logging level of the global logger.
func Level() zapcore.Level {
	return globalLevel.Level()
}

// IsDebugLevel reports whether debug logging is enabled.
func IsDebugLevel() bool {
	return globalLevel.Enabled(zapcore.DebugLevel)
}

// ParseLogLevel converts a string into a zapcore.Level.
// The second return value reports whether the input was recognized;
// unrecognized input falls back to InfoLevel.
func ParseLogLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	case "dpanic":
		return zapcore.DPanicLevel, true
	case "panic":
		return zapcore.PanicLevel, true
	case "fatal":
		return zapcore.FatalLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// Debug logs a message at debug level.
func Debug(_ context.Context, args ...any) {
	Logger().Debug(args...)
}

// Debugf logs a formatted message at debug level.
func Debugf(_ context.Context, format string, args ...any) {
	Logger().Debugf(format, args...)
}

// DebugKV logs a message with key-value pairs at debug level.
func DebugKV(_ context.Context, message string, kvs ...any) {
	Logger().Debugw(message, kvs...)
}

// Info logs a message at info level.
func Info(_ context.Context, args ...any) {
	Logger().Info(args...)
}

// Infof logs a formatted message at info level.
func Infof(_ context.Context, format string, args ...any) {
	Logger().Infof(format, args...)
}

// InfoKV logs a message with key-value pairs at info level.
func InfoKV(_ context.Context, message string, kvs ...any) {
	Logger().Infow(message, kvs...)
}

// Warn logs a message at warn level.
func Warn(_ context.Context, args ...any) {
	Logger().Warn(args...)
}

// Warnf logs a formatted message at warn level.
func Warnf(_ context.Context, format string, args ...any) {
	Logger().Warnf(format, args...)
}

// WarnKV logs a message with key-value pairs at warn level.
func WarnKV(_ context.Context, message string, kvs ...any) {
	Logger().Warnw(message, kvs...)
}

// Error logs a message at error level.
func Error(_ context.Context, args ...any) {
	Logger().Error(args...)
}

// Errorf logs a formatted message at error level.
func Errorf(_ context.Context, format string, args ...any) {
	Logger().Errorf(format, args...)
}

// ErrorKV logs a message with key-value pairs at error level.
func ErrorKV(_ context.Context, message string, kvs ...any) {
	Logger().Errorw(message, kvs...)
}

// Fatal logs a message at fatal level and exits the process.
func Fatal(_ context.Context, args ...any) {
	Logger().Fatal(args...)
}

// Fatalf logs a formatted message at fatal level and exits the process.
func Fatalf(_ context.Context, format string, args ...any) {
	Logger().Fatalf(format, args...)
}
