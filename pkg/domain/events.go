package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNavigate    EventType = "navigate"
	EventUnresolved  EventType = "unresolved"
	EventRecursion   EventType = "recursion"
	EventRecompute   EventType = "recompute"
	EventInvalidated EventType = "invalidated"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// NavigationEvent reports the outcome of one navigate call.
type NavigationEvent struct {
	EventBase
	Surface SurfaceID `json:"surface"`
	Target  PageRef   `json:"target"`
	// Assigned is the page scheduled for assignment, empty on a boundary no-op.
	Assigned PageRef `json:"assigned,omitempty"`
	Trimmed  int     `json:"trimmed,omitempty"`
}

// ResolutionEvent reports a field that failed to resolve.
type ResolutionEvent struct {
	EventBase
	Kind  FieldKind `json:"kind"`
	Value string    `json:"value"`
}

// RecursionEvent reports a display template that referenced its own variable.
type RecursionEvent struct {
	EventBase
	Variable string `json:"variable"`
}

// RecomputeEvent reports the outputs handed to the feedback engine.
type RecomputeEvent struct {
	EventBase
	IDs   []string       `json:"ids,omitempty"`
	Types []FeedbackType `json:"types,omitempty"`
}

// InvalidationEvent reports which signals a bank invalidation produced.
type InvalidationEvent struct {
	EventBase
	Key          BankKey `json:"key"`
	StyleChanged bool    `json:"style_changed"`
	TextChanged  bool    `json:"text_changed"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNavigate    func(context.Context, *NavigationEvent)
	OnUnresolved  func(context.Context, *ResolutionEvent)
	OnRecursion   func(context.Context, *RecursionEvent)
	OnRecompute   func(context.Context, *RecomputeEvent)
	OnInvalidated func(context.Context, *InvalidationEvent)
}
