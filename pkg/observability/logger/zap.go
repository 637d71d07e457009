package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nimburion/taskboard/pkg/middleware"
)

// ZapLogger is a Logger implementation using uber-go/zap for structured logging.
type ZapLogger struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
	close  func()
}

// LogLevel represents the logging level
type LogLevel string

// Log level constants
const (
	// DebugLevel enables debug and above logs
	DebugLevel LogLevel = "debug"
	// InfoLevel enables info and above logs
	InfoLevel LogLevel = "info"
	// WarnLevel enables warning and above logs
	WarnLevel LogLevel = "warn"
	// ErrorLevel enables error logs only
	ErrorLevel LogLevel = "error"
)

// LogFormat represents the output format for logs
type LogFormat string

// Log format constants
const (
	// JSONFormat outputs structured JSON logs
	JSONFormat LogFormat = "json"
	// TextFormat outputs human-readable text logs
	TextFormat LogFormat = "text"
)

// FileConfig configures an additional file transport with its own level.
type FileConfig struct {
	Enabled bool
	Path    string
	Level   LogLevel
}

// Config holds configuration for the logger
type Config struct {
	Level  LogLevel
	Format LogFormat
	// Stacktrace attaches stack traces to error-level entries.
	Stacktrace bool
	Files      []FileConfig
	// Output overrides the console writer; nil means stdout.
	Output io.Writer
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:  InfoLevel,
		Format: JSONFormat,
		Files: []FileConfig{
			{Path: "logs/misc.log", Level: DebugLevel},
			{Path: "logs/errors.log", Level: ErrorLevel},
		},
	}
}

// NewZapLogger creates a new ZapLogger with the specified configuration.
// The console core and every enabled file core are combined with a tee, each filtering by its own level.
func NewZapLogger(cfg Config) (*ZapLogger, error) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == JSONFormat {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var out io.Writer = os.Stdout
	if cfg.Output != nil {
		out = cfg.Output
	}
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(out), toZapLevel(cfg.Level)),
	}

	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	for _, file := range cfg.Files {
		if !file.Enabled {
			continue
		}
		core, closeSink, err := fileCore(encoderConfig, file)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, closeSink)
		cores = append(cores, core)
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if cfg.Stacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	logger := zap.New(zapcore.NewTee(cores...), opts...)

	return &ZapLogger{
		logger: logger,
		sugar:  logger.Sugar(),
		close:  closeAll,
	}, nil
}

// fileCore opens path for appending. Files always get JSON so they stay machine readable.
func fileCore(encoderConfig zapcore.EncoderConfig, file FileConfig) (zapcore.Core, func(), error) {
	if file.Path == "" {
		return nil, nil, fmt.Errorf("log file path is required when a file transport is enabled")
	}
	if err := os.MkdirAll(filepath.Dir(file.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	sink, closeSink, err := zap.Open(file.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", file.Path, err)
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), sink, toZapLevel(file.Level)), closeSink, nil
}

func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debug logs a debug-level message with optional key-value pairs
func (l *ZapLogger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

// Info logs an info-level message with optional key-value pairs
func (l *ZapLogger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

// Warn logs a warning-level message with optional key-value pairs
func (l *ZapLogger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

// Error logs an error-level message with optional key-value pairs
func (l *ZapLogger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

// With creates a child logger with additional key-value pairs that will be
// included in all subsequent log entries
func (l *ZapLogger) With(args ...any) Logger {
	return &ZapLogger{
		logger: l.logger,
		sugar:  l.sugar.With(args...),
		close:  l.close,
	}
}

// WithContext creates a child logger carrying the request_id and user_id
// found in ctx.
func (l *ZapLogger) WithContext(ctx context.Context) Logger {
	if fields := middleware.LogFields(ctx); len(fields) > 0 {
		return l.With(fields...)
	}
	return l
}

// Sync flushes any buffered log entries. Applications should call this before exiting.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// Close flushes and releases the file transport.
func (l *ZapLogger) Close() error {
	err := l.logger.Sync()
	if l.close != nil {
		l.close()
	}
	return err
}

// ParseLogLevel converts a string to a LogLevel. Numeric levels count up in
// verbosity: 0 is error, 1 warn, 2 info and anything above is debug.
func ParseLogLevel(level string) (LogLevel, error) {
	if n, err := strconv.Atoi(level); err == nil && n >= 0 {
		levels := []LogLevel{ErrorLevel, WarnLevel, InfoLevel}
		if n < len(levels) {
			return levels[n], nil
		}
		return DebugLevel, nil
	}

	switch level {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return "", fmt.Errorf("invalid log level: %s", level)
	}
}

// ParseLogFormat converts a string to a LogFormat
func ParseLogFormat(format string) (LogFormat, error) {
	switch format {
	case "json":
		return JSONFormat, nil
	case "text", "console":
		return TextFormat, nil
	default:
		return "", fmt.Errorf("invalid log format: %s", format)
	}
}
