package templating

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DispatchLogEvent describes one applied intent or datasource query.
type DispatchLogEvent struct {
	Action    ActionType
	Variable  Identifier
	RequestID string
	Duration  time.Duration
	Err       error
}

// DispatchLogger records dispatch events.
type DispatchLogger interface {
	LogDispatch(DispatchLogEvent)
}

// DispatchLoggerFunc adapts a function to DispatchLogger.
type DispatchLoggerFunc func(DispatchLogEvent)

// LogDispatch implements DispatchLogger.
func (f DispatchLoggerFunc) LogDispatch(event DispatchLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopDispatchLogger struct{}

func (noopDispatchLogger) LogDispatch(DispatchLogEvent) {}

// SlogDispatchLogger writes dispatch events to logger. Failures other than
// superseded query responses are logged at error level, the rest at debug.
func SlogDispatchLogger(logger *slog.Logger) DispatchLogger {
	if logger == nil {
		return noopDispatchLogger{}
	}
	return DispatchLoggerFunc(func(event DispatchLogEvent) {
		attrs := []slog.Attr{
			slog.String("action", string(event.Action)),
			slog.String("variable", event.Variable.Name),
			slog.String("kind", string(event.Variable.Type)),
			slog.Duration("duration", event.Duration),
		}
		if event.RequestID != "" {
			attrs = append(attrs, slog.String("request_id", event.RequestID))
		}
		level := slog.LevelDebug
		if event.Err != nil {
			attrs = append(attrs, slog.String("error", event.Err.Error()))
			if !errors.Is(event.Err, ErrStaleResponse) {
				level = slog.LevelError
			}
		}
		logger.LogAttrs(context.Background(), level, "templating dispatch", attrs...)
	})
}

// MultiDispatchLogger forwards events to every non-nil logger.
func MultiDispatchLogger(loggers ...DispatchLogger) DispatchLogger {
	targets := make([]DispatchLogger, 0, len(loggers))
	for _, logger := range loggers {
		if logger != nil {
			targets = append(targets, logger)
		}
	}
	switch len(targets) {
	case 0:
		return noopDispatchLogger{}
	case 1:
		return targets[0]
	}
	return DispatchLoggerFunc(func(event DispatchLogEvent) {
		for _, logger := range targets {
			logger.LogDispatch(event)
		}
	})
}
