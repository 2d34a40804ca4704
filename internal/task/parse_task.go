package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/source"
)

// SourceParseTask parses one manifest source. Its layers and error are
// available once the task has finished executing.
type SourceParseTask struct {
	id     uuid.UUID
	source domain.Source
	parser source.Parser

	mu     sync.Mutex
	status TaskStatus
	layers []*domain.Layer
	err    error
}

var _ Task = (*SourceParseTask)(nil)

// NewSourceParseTask creates a pending task for src.
func NewSourceParseTask(src domain.Source, parser source.Parser) *SourceParseTask {
	if parser == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("parser cannot be nil")
	}
	return &SourceParseTask{
		id:     uuid.New(),
		source: src,
		parser: parser,
		status: TaskStatusPending,
	}
}

// ID returns the task's unique identifier
func (t *SourceParseTask) ID() uuid.UUID { return t.id }

// Type returns TaskTypeSourceParse
func (t *SourceParseTask) Type() string { return TaskTypeSourceParse }

// Source returns the source being parsed
func (t *SourceParseTask) Source() domain.Source { return t.source }

// Status returns the current task status
func (t *SourceParseTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Execute runs the parser. Layers are kept even when the parser reports
// problems. Errors that do not already name the source are wrapped with
// its id.
func (t *SourceParseTask) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing)

	layers, err := t.parser.Parse(ctx, t.source)
	if err != nil && !errors.Is(err, domain.ErrSourceParse) {
		err = fmt.Errorf("source %q: %w", t.source.ID, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.layers = layers
	t.err = err
	if err != nil {
		t.status = TaskStatusFailed
	} else {
		t.status = TaskStatusCompleted
	}
	return err
}

// Result returns the parsed layers and the parse error, if any. A task
// that never ran reports no layers and no error; check Status.
func (t *SourceParseTask) Result() ([]*domain.Layer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.layers, t.err
}

func (t *SourceParseTask) setStatus(s TaskStatus) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}
