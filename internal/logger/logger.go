package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a leveled logger backed by a zap SugaredLogger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New logs JSON to stdout at info level.
func New() *Logger {
	return newLogger(zapcore.NewJSONEncoder(encoderConfig()), os.Stdout, zapcore.InfoLevel)
}

// NewForEnv picks a readable console format with debug output outside
// production.
func NewForEnv(env string) *Logger {
	if env == "production" {
		return New()
	}
	return newLogger(zapcore.NewConsoleEncoder(encoderConfig()), os.Stdout, zapcore.DebugLevel)
}

// NewWithWriter logs every level to writer in console format. Used by tests.
func NewWithWriter(writer io.Writer) *Logger {
	return newLogger(zapcore.NewConsoleEncoder(encoderConfig()), writer, zapcore.DebugLevel)
}

func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

func newLogger(enc zapcore.Encoder, w io.Writer, level zapcore.Level) *Logger {
	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return &Logger{sugar: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()}
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

// With returns a child logger that adds key/value pairs to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

func (l *Logger) Debug(v ...interface{}) {
	l.sugar.Debugln(v...)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

func (l *Logger) Info(v ...interface{}) {
	l.sugar.Infoln(v...)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

func (l *Logger) Warn(v ...interface{}) {
	l.sugar.Warnln(v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

func (l *Logger) Error(v ...interface{}) {
	l.sugar.Errorln(v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Errorw logs msg with structured key/value context.
func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}
