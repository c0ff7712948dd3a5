package agent

import (
	"sync"
	"time"
)

// EventKind identifies a session event type.
type EventKind string

const (
	EventSessionStart       EventKind = "session_start"
	EventSessionEnd         EventKind = "session_end"
	EventGenerationStart    EventKind = "generation_start"
	EventGenerationEnd      EventKind = "generation_end"
	EventFileWritten        EventKind = "file_written"
	EventCommandRun         EventKind = "command_run"
	EventDependencyAdded    EventKind = "dependency_added"
	EventQualityCheck       EventKind = "quality_check"
	EventTestRun            EventKind = "test_run"
	EventImprovementSkipped EventKind = "improvement_skipped"
	EventValidation         EventKind = "validation"
	EventWarning            EventKind = "warning"
	EventError              EventKind = "error"
)

// SessionEvent is a typed notification emitted while a task runs.
type SessionEvent struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	SessionID string                 `json:"session_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventEmitter delivers session events to a buffered channel. Emission
// never blocks; events are dropped when the consumer falls behind.
type EventEmitter struct {
	sessionID string
	ch        chan SessionEvent
	closed    bool
	mu        sync.Mutex
}

// NewEventEmitter creates an emitter with the given buffer size.
// A non-positive size selects the default of 256.
func NewEventEmitter(sessionID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		sessionID: sessionID,
		ch:        make(chan SessionEvent, bufferSize),
	}
}

// Emit sends an event without blocking.
func (e *EventEmitter) Emit(kind EventKind, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	event := SessionEvent{
		Kind:      kind,
		Timestamp: time.Now(),
		SessionID: e.sessionID,
		Data:      data,
	}

	select {
	case e.ch <- event:
	default:
		// Consumer fell behind; drop rather than stall the loop.
	}
}

// Events returns the receive side of the event channel.
func (e *EventEmitter) Events() <-chan SessionEvent {
	return e.ch
}

// Close shuts the channel. Safe to call more than once.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.ch)
}
