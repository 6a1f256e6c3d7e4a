package events

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventFromJSON parses an event from its {"type","data"} JSON envelope
func EventFromJSON(data []byte) (Event, error) {
	// First, parse the envelope to determine the type
	var raw struct {
		Type EventType       `json:"type"`
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse event envelope: %w", err)
	}

	// Create the appropriate event type based on the type field
	var (
		event   Event
		payload any
	)
	switch raw.Type {
	case EventTypeThinkingStep:
		e := &ThinkingStepEvent{BaseEvent: NewBaseEvent(raw.Type)}
		event, payload = e, &e.Step
	case EventTypeConclusion:
		e := &ConclusionEvent{BaseEvent: NewBaseEvent(raw.Type)}
		event, payload = e, &e.Data
	case EventTypeChart:
		e := &ChartEvent{BaseEvent: NewBaseEvent(raw.Type)}
		event, payload = e, &e.Chart
	case EventTypeData:
		e := &DataEvent{BaseEvent: NewBaseEvent(raw.Type)}
		event, payload = e, &e.Preview
	case EventTypeDone:
		e := &DoneEvent{BaseEvent: NewBaseEvent(raw.Type)}
		event, payload = e, &e.Data
	case EventTypeError:
		e := &ErrorEvent{BaseEvent: NewBaseEvent(raw.Type)}
		event, payload = e, &e.Data
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, raw.Type)
	}

	// Unmarshal the payload into the specific event type
	if len(raw.Data) > 0 && !bytes.Equal(raw.Data, []byte("null")) {
		if err := json.Unmarshal(raw.Data, payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s event: %w", raw.Type, err)
		}
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	return event, nil
}
