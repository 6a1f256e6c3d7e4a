package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType represents the type tag of a chat stream event
type EventType string

// Chat stream event type constants - matching the wire protocol
const (
	EventTypeThinkingStep EventType = "thinking_step"
	EventTypeConclusion   EventType = "conclusion"
	EventTypeChart        EventType = "chart"
	EventTypeData         EventType = "data"
	EventTypeDone         EventType = "done"
	EventTypeError        EventType = "error"
)

// ErrUnknownEventType is returned when a payload carries a type tag outside the protocol.
var ErrUnknownEventType = errors.New("unknown event type")

// validEventTypes is a map for O(1) lookup of valid event types
var validEventTypes = map[EventType]bool{
	EventTypeThinkingStep: true,
	EventTypeConclusion:   true,
	EventTypeChart:        true,
	EventTypeData:         true,
	EventTypeDone:         true,
	EventTypeError:        true,
}

// Event is the closed set of chat stream events. The set is sealed: only
// the types in this package implement it, so a type switch over
// *ThinkingStepEvent, *ConclusionEvent, *ChartEvent, *DataEvent, *DoneEvent
// and *ErrorEvent covers every event.
type Event interface {
	// Type returns the event type
	Type() EventType

	// Validate validates the event structure and content
	Validate() error

	// ToJSON serializes the event to its {"type","data"} wire envelope
	ToJSON() ([]byte, error)

	sealed()
}

// BaseEvent provides common fields and functionality for all events
type BaseEvent struct {
	EventType EventType `json:"type"`
}

// Type returns the event type
func (b *BaseEvent) Type() EventType {
	return b.EventType
}

func (b *BaseEvent) sealed() {}

// NewBaseEvent creates a new base event with the given type
func NewBaseEvent(eventType EventType) *BaseEvent {
	return &BaseEvent{EventType: eventType}
}

// Validate validates the base event structure
func (b *BaseEvent) Validate() error {
	if b.EventType == "" {
		return fmt.Errorf("BaseEvent validation failed: type field is required")
	}

	if !isValidEventType(b.EventType) {
		return fmt.Errorf("BaseEvent validation failed: invalid event type '%s'", b.EventType)
	}

	return nil
}

// isValidEventType checks if the given event type is valid
func isValidEventType(eventType EventType) bool {
	return validEventTypes[eventType]
}

// IsTerminal reports whether the event ends the turn from the server's side.
func IsTerminal(event Event) bool {
	switch event.Type() {
	case EventTypeDone, EventTypeError:
		return true
	default:
		return false
	}
}

// envelope is the wire shape shared by every event
type envelope struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

func marshalEnvelope(eventType EventType, data any) ([]byte, error) {
	return json.Marshal(envelope{Type: eventType, Data: data})
}
