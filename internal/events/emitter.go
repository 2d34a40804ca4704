package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter fans events out to handlers registered in process.
// Handlers run synchronously, in registration order.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter returns an emitter with no handlers. If logger is
// nil, a default logger will be used.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With(slog.String("component", "event_emitter")),
	}
}

// RegisterHandler subscribes h to every later event. A nil handler is ignored.
func (e *InMemoryEventEmitter) RegisterHandler(h EventHandler) {
	if h == nil {
		return
	}
	e.mu.Lock()
	e.handlers = append(e.handlers, h)
	n := len(e.handlers)
	e.mu.Unlock()

	e.logger.Debug("event handler registered", slog.Int("handlers", n))
}

// EmitEvent delivers event to every handler even when some fail, and
// returns the first failure.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *ProgressEvent) error {
	e.mu.RLock()
	handlers := e.handlers[:len(e.handlers):len(e.handlers)]
	e.mu.RUnlock()

	var first error
	for i, h := range handlers {
		err := h.HandleEvent(ctx, event)
		if err == nil {
			continue
		}
		e.logger.WarnContext(ctx, "event handler failed",
			slog.Int("handler", i),
			slog.String("stage", string(event.Stage)),
			slog.String("status", string(event.Status)),
			slog.String("error", err.Error()))
		if first == nil {
			first = err
		}
	}
	return first
}

// Discard is an emitter that drops every event.
var Discard EventEmitter = discard{}

type discard struct{}

func (discard) EmitEvent(context.Context, *ProgressEvent) error { return nil }
