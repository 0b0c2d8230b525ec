package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var globalLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()

var once sync.Once

// Options controls where and how much the process logs.
type Options struct {
	FilePath string
	Level    string
	// Console switches stdout to the human readable writer used by the CLI.
	Console bool
}

// InitLogging configures the global zerolog logger. Only the first call has
// an effect.
func InitLogging(opts Options) {
	once.Do(func() {
		var writers []io.Writer
		if opts.Console {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
		} else {
			writers = append(writers, os.Stdout)
		}

		if opts.FilePath != "" {
			file, err := os.OpenFile(opts.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
			if err != nil {
				// logger is not ready yet
				os.Stderr.WriteString("Failed to open log file: " + err.Error() + "\n")
			} else {
				writers = append(writers, file)
			}
		}

		level, err := zerolog.ParseLevel(opts.Level)
		if err != nil || opts.Level == "" {
			level = zerolog.InfoLevel
		}

		multi := zerolog.MultiLevelWriter(writers...)
		l := zerolog.New(multi).With().Timestamp().Logger().Level(level)
		globalLogger = l
		log.Logger = l
	})
}

// WithLogger returns a new context containing the logger with additional fields.
func WithLogger(ctx context.Context, fields map[string]interface{}) context.Context {
	l := getLogger(ctx).With().Fields(fields).Logger()
	return l.WithContext(ctx)
}

// WithRun tags every log line of one pipeline run.
func WithRun(ctx context.Context, runID, operation string) context.Context {
	return WithLogger(ctx, map[string]interface{}{
		"run_id":    runID,
		"operation": operation,
	})
}

// getLogger extracts the zerolog logger from the context, falling back to the global logger.
func getLogger(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &globalLogger
	}
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &globalLogger
	}
	return l
}

// DebugLog logs a debug level message.
func DebugLog(ctx context.Context, msg string, args ...interface{}) {
	getLogger(ctx).Debug().Msgf(msg, args...)
}

// InfoLog logs an info level message.
func InfoLog(ctx context.Context, msg string, args ...interface{}) {
	getLogger(ctx).Info().Msgf(msg, args...)
}

// WarnLog logs a warning level message.
func WarnLog(ctx context.Context, msg string, args ...interface{}) {
	getLogger(ctx).Warn().Msgf(msg, args...)
}

// ErrorLog logs an error level message. A non-nil err is attached as the
// structured "error" field.
func ErrorLog(ctx context.Context, err error, format string, args ...interface{}) {
	ev := getLogger(ctx).Error()
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msgf(format, args...)
}
