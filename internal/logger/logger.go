// internal/logger/logger.go
package logger

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger extends zap.Logger with the quoter's context helpers.
type Logger struct {
	*zap.Logger
	config *Config
}

// New builds a console logger plus, when cfg.LogFile is set, a rotating JSON
// file sink.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var file zapcore.WriteSyncer
	if cfg.LogFile != "" {
		file = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}

	return NewWithSinks(cfg, zapcore.Lock(os.Stdout), file), nil
}

// NewWithSinks builds the logger on explicit sinks. file may be nil.
func NewWithSinks(cfg *Config, console, file zapcore.WriteSyncer) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	level := zapcore.InfoLevel
	if cfg.Development {
		level = zapcore.DebugLevel
	}

	var consoleCore zapcore.Core
	if cfg.Pretty {
		consoleCore = &FieldFilterCore{core: zapcore.NewCore(PrettyEncoder(), console, level)}
	} else {
		consoleCore = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), console, level)
	}

	cores := []zapcore.Core{consoleCore}
	if file != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), file, level))
	}

	return &Logger{
		Logger: zap.New(zapcore.NewTee(cores...),
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		),
		config: cfg,
	}
}

// WithOperation creates a logger for one operation with a fresh correlation id.
func (l *Logger) WithOperation(operation string) *zap.Logger {
	return l.With(
		zap.String("operation", operation),
		zap.String("correlation_id", uuid.New().String()),
		zap.Time("start_time", time.Now().UTC()),
	)
}

// WithComponent tags entries with a subsystem name.
func (l *Logger) WithComponent(component string) *zap.Logger {
	return l.With(zap.String("component", component))
}

// WithPool tags entries with a pool address and venue label.
func (l *Logger) WithPool(pool solana.PublicKey, label string) *zap.Logger {
	return l.With(
		zap.String("pool", pool.String()),
		zap.String("venue", label),
	)
}

// LogError logs err with additional context.
func (l *Logger) LogError(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.Error(msg, fields...)
}

// Sync flushes the sinks, ignoring the errors terminals return for fsync.
func (l *Logger) Sync() error {
	err := l.Logger.Sync()
	if err != nil && (errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)) {
		return nil
	}
	return err
}

// TrackPerformance logs the duration of an operation when the returned func runs.
func (l *Logger) TrackPerformance(operation string) (end func()) {
	start := time.Now()
	opLogger := l.WithOperation(operation)

	opLogger.Debug("Starting operation")

	return func() {
		duration := time.Since(start)
		opLogger.Debug("Operation completed",
			zap.Duration("duration", duration),
			zap.Float64("duration_ms", float64(duration.Microseconds())/1000),
		)
	}
}
