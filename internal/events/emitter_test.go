package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/flatmap-maker/internal/platform/logger"
)

func TestInMemoryEventEmitter(t *testing.T) {
	// Create a minimal logger that discards output
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)
		err := emitter.EmitEvent(context.Background(), NewProgressEvent("", StageRun, StatusStarted))
		assert.NoError(t, err)
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)

		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event := NewProgressEvent("", StageParse, StatusFinished)
		err := emitter.EmitEvent(context.Background(), event)
		assert.NoError(t, err)

		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Equal(t, event, handler1.LastEvent)
		assert.Equal(t, event, handler2.LastEvent)
	})

	t.Run("emit event with failing handler", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)

		successHandler := &MockEventHandler{}
		failingHandler := &MockEventHandler{
			HandlerError: errors.New("handler error"),
		}
		emitter.RegisterHandler(failingHandler)
		emitter.RegisterHandler(successHandler)

		err := emitter.EmitEvent(context.Background(), NewProgressEvent("", StageParse, StatusFinished))
		assert.EqualError(t, err, "handler error")

		// Both handlers should still have received the event
		assert.Equal(t, 1, successHandler.HandledCount)
		assert.Equal(t, 1, failingHandler.HandledCount)
	})

	t.Run("nil logger", func(t *testing.T) {
		assert.NotPanics(t, func() {
			_ = NewInMemoryEventEmitter(nil).EmitEvent(context.Background(), NewProgressEvent("", StageRun, StatusStarted))
		})
	})
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard.EmitEvent(context.Background(), NewProgressEvent("", StageRun, StatusStarted)))
}

func TestLogHandler(t *testing.T) {
	log, buf := logger.GetTestLogger(t)
	handler := NewLogHandler(log)
	ctx := context.Background()

	assert.NoError(t, handler.HandleEvent(ctx, NewProgressEvent("", StageExport, StatusFinished).WithSubject("body").WithCount(4)))
	logger.AssertLogField(t, buf, "stage", "export")
	logger.AssertLogField(t, buf, "subject", "body")
	logger.AssertLogField(t, buf, "count", float64(4))
	logger.AssertLogField(t, buf, "level", "INFO")

	buf.Reset()
	failed := NewProgressEvent("", StageTile, StatusStarted)
	failed.Status = StatusFailed
	failed.Err = "engine exited 1"
	assert.NoError(t, handler.HandleEvent(ctx, failed))
	logger.AssertLogField(t, buf, "level", "WARN")
	logger.AssertLogField(t, buf, "error", "engine exited 1")

	t.Run("prefers the context logger", func(t *testing.T) {
		ctx, ctxBuf := logger.NewTestContext(t)
		buf.Reset()

		assert.NoError(t, handler.HandleEvent(ctx, NewProgressEvent("", StageRun, StatusFinished)))
		assert.Empty(t, buf.String())
		logger.AssertLogContains(t, ctxBuf, "pipeline progress")
	})
}
