package task

import (
	"context"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Done reports whether s is a final state.
func (s TaskStatus) Done() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskTypeSourceParse identifies SourceParseTask.
const TaskTypeSourceParse = "source_parse"

// Task is one unit of work run by a WorkerPool. Execute is called at most
// once and must return promptly when ctx is canceled.
type Task interface {
	ID() uuid.UUID
	Type() string
	Status() TaskStatus
	Execute(ctx context.Context) error
}

// TaskQueueReader is the consuming side of a queue. The channel is closed
// once the queue is closed and drained.
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter is the producing side of a queue. Enqueue fails with
// ErrQueueFull or ErrQueueClosed rather than blocking.
type TaskQueueWriter interface {
	Enqueue(task Task) error
	Close()
}
