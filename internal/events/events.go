package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Stage names one step of a conversion run.
type Stage string

// Pipeline stages in the order they run.
const (
	StageManifest  Stage = "manifest"
	StageParse     Stage = "parse"
	StageNormalize Stage = "normalize"
	StageCompose   Stage = "compose"
	StageExport    Stage = "export"
	StageTile      Stage = "tile"
	StageLabels    Stage = "labels"
	StageRun       Stage = "run"
)

// Status says what happened to a stage.
type Status string

// Stage statuses.
const (
	StatusStarted  Status = "started"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
)

// ProgressEvent reports a stage of a run, optionally scoped to one source
// or layer.
type ProgressEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// RunID ties together the events of one conversion run
	RunID string `json:"run_id,omitempty"`

	Stage  Stage  `json:"stage"`
	Status Status `json:"status"`

	// Subject is the source or layer id the event is about, if any
	Subject string `json:"subject,omitempty"`

	// Count is a stage-specific tally, such as features exported
	Count int `json:"count,omitempty"`

	// Duration is set on finished and failed events
	Duration time.Duration `json:"duration,omitempty"`

	// Err is the failure message of a failed event
	Err string `json:"error,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewProgressEvent creates an event for stage with the given status.
func NewProgressEvent(runID string, stage Stage, status Status) *ProgressEvent {
	return &ProgressEvent{
		ID:        uuid.New(),
		RunID:     runID,
		Stage:     stage,
		Status:    status,
		CreatedAt: time.Now(),
	}
}

// WithSubject sets the subject and returns the event.
func (e *ProgressEvent) WithSubject(subject string) *ProgressEvent {
	e.Subject = subject
	return e
}

// WithCount sets the count and returns the event.
func (e *ProgressEvent) WithCount(n int) *ProgressEvent {
	e.Count = n
	return e
}

// Finish marks the event finished, or failed when err is non-nil, with the
// time elapsed since start.
func (e *ProgressEvent) Finish(start time.Time, err error) *ProgressEvent {
	e.Duration = time.Since(start)
	if err != nil {
		e.Status = StatusFailed
		e.Err = err.Error()
		return e
	}
	e.Status = StatusFinished
	return e
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *ProgressEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *ProgressEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *ProgressEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *ProgressEvent) error
}
