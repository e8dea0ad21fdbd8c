package logger

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/standupbot/internal/errs"
)

// gocronLogger forwards scheduler logs to slog, tagging scheduler errors
// with an error code.
type gocronLogger struct {
	log *slog.Logger
}

// NewGocronLogger adapts log to the gocron.Logger interface.
//
//nolint:ireturn // gocron.WithLogger takes the interface
func NewGocronLogger(log *slog.Logger) gocron.Logger {
	if log == nil {
		log = slog.Default()
	}
	return &gocronLogger{log: log.With("component", "gocron")}
}

func (l *gocronLogger) Debug(msg string, args ...any) {
	l.log.Debug(msg, processSchedulerArgs(args...)...)
}

func (l *gocronLogger) Error(msg string, args ...any) {
	l.log.Error(msg, processSchedulerArgs(args...)...)
}

func (l *gocronLogger) Info(msg string, args ...any) {
	l.log.Info(msg, processSchedulerArgs(args...)...)
}

func (l *gocronLogger) Warn(msg string, args ...any) {
	l.log.Warn(msg, processSchedulerArgs(args...)...)
}

// processSchedulerArgs wraps error values in coded errors so scheduler
// failures are searchable by code.
func processSchedulerArgs(args ...any) []any {
	processed := make([]any, 0, len(args))

	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			processed = append(processed, args[i])
			break
		}

		key, val := args[i], args[i+1]
		if err, ok := val.(error); ok && key == "error" {
			val = classifySchedulerError(err)
		}
		processed = append(processed, key, val)
	}
	return processed
}

func classifySchedulerError(err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, gocron.ErrJobNotFound):
		return errs.NewValidationError("scheduled job not found", err)
	case strings.Contains(msg, "duplicate job"):
		return errs.NewValidationError("duplicate job name", err)
	case strings.Contains(msg, "shutdown"):
		return errs.NewConfigError("scheduler is shut down", err)
	default:
		return errs.NewConfigError("scheduler error", err)
	}
}
