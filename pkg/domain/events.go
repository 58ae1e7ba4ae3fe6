package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventEvaluateStart EventType = "evaluate_start"
	EventEvaluateDone  EventType = "evaluate_done"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// EvaluationEvent describes one trigger cycle.
// Output, Err, Stale and Duration are only populated on EventEvaluateDone.
type EvaluationEvent struct {
	EventBase
	Sequence uint64        `json:"sequence"`
	Input    string        `json:"input"`
	Output   string        `json:"output,omitempty"`
	Err      error         `json:"-"`
	Stale    bool          `json:"stale,omitempty"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for evaluation observability.
type LifecycleHooks struct {
	OnEvaluateStart func(context.Context, *EvaluationEvent)
	OnEvaluateDone  func(context.Context, *EvaluationEvent)
}

// Outcome is the result of one trigger cycle as seen by the caller.
type Outcome struct {
	// Sequence is the submission order of the cycle, starting at 1.
	Sequence uint64
	// Input is the snapshot that was handed to the engine.
	Input string
	// Output is the text written to the renderer, if any.
	Output string
	// Err is the surfaced failure, if any.
	Err error
	// Rendered reports whether Output replaced the renderer's content.
	Rendered bool
	// Stale reports that a newer submission had already been rendered, so this result was dropped.
	Stale bool
	// Duration is how long the engine ran.
	Duration time.Duration
}

// MergeHooks returns hooks that call each of the given hooks in order.
func MergeHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnEvaluateStart: func(ctx context.Context, e *EvaluationEvent) {
			for _, h := range all {
				if h.OnEvaluateStart != nil {
					h.OnEvaluateStart(ctx, e)
				}
			}
		},
		OnEvaluateDone: func(ctx context.Context, e *EvaluationEvent) {
			for _, h := range all {
				if h.OnEvaluateDone != nil {
					h.OnEvaluateDone(ctx, e)
				}
			}
		},
	}
}
