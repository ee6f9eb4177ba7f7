package dispatch

import (
	"context"
	"log/slog"
)

// LoggerDispatcher is a stub implementation that writes deliveries to the
// logger instead of a gateway. Used in development and demo mode, where no
// real SMS should ever leave the service.
type LoggerDispatcher struct {
	logger *slog.Logger
}

// NewLoggerDispatcher constructs a logging dispatcher stub.
func NewLoggerDispatcher(logger *slog.Logger) *LoggerDispatcher {
	return &LoggerDispatcher{logger: logger}
}

// Send writes the message to the structured logger.
func (d *LoggerDispatcher) Send(_ context.Context, msg Message) (Result, error) {
	if d == nil || d.logger == nil {
		return Result{Status: "logged"}, nil
	}
	d.logger.Info("sms dispatch",
		slog.String("destination", msg.Destination),
		slog.String("body", msg.Body),
	)
	return Result{Status: "logged"}, nil
}
