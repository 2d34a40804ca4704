package events

import (
	"context"
	"log/slog"

	"github.com/phrazzld/flatmap-maker/internal/platform/logger"
)

// LogHandler writes progress events to the structured log. Started events
// are logged at debug level, failures at warn.
type LogHandler struct {
	logger *slog.Logger
}

var _ EventHandler = (*LogHandler)(nil)

// NewLogHandler returns a handler logging through log, or the context
// logger when one is attached to the event's context.
func NewLogHandler(log *slog.Logger) *LogHandler {
	if log == nil {
		log = slog.Default()
	}
	return &LogHandler{logger: log}
}

// HandleEvent implements EventHandler.
func (h *LogHandler) HandleEvent(ctx context.Context, event *ProgressEvent) error {
	log := logger.FromContextOrDefault(ctx, h.logger)

	attrs := []slog.Attr{
		slog.String("stage", string(event.Stage)),
		slog.String("status", string(event.Status)),
	}
	if event.Subject != "" {
		attrs = append(attrs, slog.String("subject", event.Subject))
	}
	if event.Count != 0 {
		attrs = append(attrs, slog.Int("count", event.Count))
	}
	if event.Duration != 0 {
		attrs = append(attrs, slog.Duration("duration", event.Duration))
	}

	level := slog.LevelInfo
	switch event.Status {
	case StatusStarted:
		level = slog.LevelDebug
	case StatusFailed:
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", event.Err))
	}

	log.LogAttrs(ctx, level, "pipeline progress", attrs...)
	return nil
}
