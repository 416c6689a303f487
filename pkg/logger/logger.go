package logger

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tradecouncil/pkg/errors"
)

var globalLogger *Logger

// Logger wraps zap.SugaredLogger with optional error tracking
type Logger struct {
	*zap.SugaredLogger
	errorTracker errors.Tracker
}

// Init initializes the global logger
func Init(level string, env string) error {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// Parse level
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return err
	}

	globalLogger = &Logger{
		SugaredLogger: logger.Sugar(),
		errorTracker:  nil, // Will be set via SetErrorTracker
	}
	return nil
}

// New builds a standalone logger without touching the global one.
// Pass zap.NewNop() for silent tests.
func New(z *zap.Logger) *Logger {
	return &Logger{SugaredLogger: z.Sugar()}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return New(zap.NewNop())
}

// SetErrorTracker sets the error tracker for automatic error reporting
func SetErrorTracker(tracker errors.Tracker) {
	if globalLogger != nil {
		globalLogger.errorTracker = tracker
	}
}

// Get returns the global logger
func Get() *Logger {
	if globalLogger == nil {
		// Fallback to basic logger
		logger, _ := zap.NewDevelopment()
		globalLogger = &Logger{
			SugaredLogger: logger.Sugar(),
			errorTracker:  nil,
		}
	}
	return globalLogger
}

// With creates a child logger with additional fields
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(args...),
		errorTracker:  l.errorTracker,
	}
}

// Errorf logs a formatted error and forwards it to the error tracker
func (l *Logger) Errorf(template string, args ...interface{}) {
	l.SugaredLogger.Errorf(template, args...)

	if l.errorTracker != nil {
		_ = l.errorTracker.CaptureError(context.Background(), fmt.Errorf(template, args...),
			map[string]string{errors.TagComponent: "logger"})
	}
}

// Capture logs err with tags as structured fields and forwards it to the
// error tracker. Pipeline failures go through here so they carry subject
// and stage.
func (l *Logger) Capture(ctx context.Context, msg string, err error, tags map[string]string) {
	l.SugaredLogger.Errorw(msg, append(tagFields(tags), "error", err)...)

	if l.errorTracker != nil {
		_ = l.errorTracker.CaptureError(ctx, err, tags)
	}
}

// Notice logs msg at a level matching the tracker's and forwards it as a
// message event. Used for conditions worth alerting on that are not errors.
func (l *Logger) Notice(ctx context.Context, level errors.Level, msg string, tags map[string]string) {
	fields := tagFields(tags)
	switch level {
	case errors.LevelDebug:
		l.SugaredLogger.Debugw(msg, fields...)
	case errors.LevelInfo:
		l.SugaredLogger.Infow(msg, fields...)
	case errors.LevelWarning:
		l.SugaredLogger.Warnw(msg, fields...)
	default:
		l.SugaredLogger.Errorw(msg, fields...)
	}

	if l.errorTracker != nil {
		_ = l.errorTracker.CaptureMessage(ctx, msg, level, tags)
	}
}

// WithTracker returns a copy of l reporting to tracker
func (l *Logger) WithTracker(tracker errors.Tracker) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger, errorTracker: tracker}
}

func tagFields(tags map[string]string) []interface{} {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]interface{}, 0, len(tags)*2+2)
	for _, k := range keys {
		fields = append(fields, k, tags[k])
	}
	return fields
}

// Convenience functions that use the global logger
func Debug(args ...interface{})                   { Get().Debug(args...) }
func Debugf(template string, args ...interface{}) { Get().Debugf(template, args...) }
func Info(args ...interface{})                    { Get().Info(args...) }
func Infof(template string, args ...interface{})  { Get().Infof(template, args...) }
func Warn(args ...interface{})                    { Get().Warn(args...) }
func Warnf(template string, args ...interface{})  { Get().Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { Get().Errorf(template, args...) }
func Fatal(args ...interface{})                   { Get().Fatal(args...) }
func Fatalf(template string, args ...interface{}) { Get().Fatalf(template, args...) }

// Sync flushes any buffered log entries
func Sync() error {
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}
