package events

import (
	"fmt"

	"github.com/dataada/go-sdk/pkg/core"
)

// ThinkingStepEvent upserts one reasoning step on the active assistant message
type ThinkingStepEvent struct {
	*BaseEvent
	Step core.ThinkingStep
}

// NewThinkingStepEvent creates a new thinking step event
func NewThinkingStepEvent(id string, status core.ThinkingStatus, text string) *ThinkingStepEvent {
	return &ThinkingStepEvent{
		BaseEvent: NewBaseEvent(EventTypeThinkingStep),
		Step: core.ThinkingStep{
			ID:     id,
			Status: status,
			Text:   text,
		},
	}
}

// Validate validates the thinking step event
func (e *ThinkingStepEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.Step.ID == "" {
		return fmt.Errorf("ThinkingStepEvent validation failed: id field is required")
	}

	if err := e.Step.Status.Validate(); err != nil {
		return fmt.Errorf("ThinkingStepEvent validation failed: %w", err)
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *ThinkingStepEvent) ToJSON() ([]byte, error) {
	return marshalEnvelope(e.Type(), e.Step)
}

// ConclusionData is the payload of a conclusion event
type ConclusionData struct {
	Content    string `json:"content"`
	IsComplete bool   `json:"isComplete"`
}

// ConclusionEvent sets the answer text of the active assistant message
type ConclusionEvent struct {
	*BaseEvent
	Data ConclusionData
}

// NewConclusionEvent creates a new conclusion event
func NewConclusionEvent(content string, isComplete bool) *ConclusionEvent {
	return &ConclusionEvent{
		BaseEvent: NewBaseEvent(EventTypeConclusion),
		Data: ConclusionData{
			Content:    content,
			IsComplete: isComplete,
		},
	}
}

// ToJSON serializes the event to JSON
func (e *ConclusionEvent) ToJSON() ([]byte, error) {
	return marshalEnvelope(e.Type(), e.Data)
}

// ChartEvent attaches a chart configuration to the active assistant message
type ChartEvent struct {
	*BaseEvent
	Chart core.ChartConfig
}

// NewChartEvent creates a new chart event
func NewChartEvent(chart core.ChartConfig) *ChartEvent {
	return &ChartEvent{
		BaseEvent: NewBaseEvent(EventTypeChart),
		Chart:     chart,
	}
}

// Validate validates the chart event
func (e *ChartEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.Chart.ChartID == "" {
		return fmt.Errorf("ChartEvent validation failed: chart_id field is required")
	}

	if e.Chart.RecommendedType == "" {
		return fmt.Errorf("ChartEvent validation failed: recommended_type field is required")
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *ChartEvent) ToJSON() ([]byte, error) {
	return marshalEnvelope(e.Type(), e.Chart)
}

// DataEvent carries an informational data preview. It is not stored on the message.
type DataEvent struct {
	*BaseEvent
	Preview core.DataPreview
}

// NewDataEvent creates a new data preview event
func NewDataEvent(preview core.DataPreview) *DataEvent {
	return &DataEvent{
		BaseEvent: NewBaseEvent(EventTypeData),
		Preview:   preview,
	}
}

// ToJSON serializes the event to JSON
func (e *DataEvent) ToJSON() ([]byte, error) {
	return marshalEnvelope(e.Type(), e.Preview)
}

// DoneData is the payload of a done event
type DoneData struct {
	Message string `json:"message,omitempty"`
}

// DoneEvent marks the end of the assistant turn
type DoneEvent struct {
	*BaseEvent
	Data DoneData
}

// NewDoneEvent creates a new done event
func NewDoneEvent(options ...DoneOption) *DoneEvent {
	event := &DoneEvent{
		BaseEvent: NewBaseEvent(EventTypeDone),
	}

	for _, opt := range options {
		opt(event)
	}

	return event
}

// DoneOption defines options for creating done events
type DoneOption func(*DoneEvent)

// WithDoneMessage sets the closing message of a done event
func WithDoneMessage(message string) DoneOption {
	return func(e *DoneEvent) {
		e.Data.Message = message
	}
}

// ToJSON serializes the event to JSON
func (e *DoneEvent) ToJSON() ([]byte, error) {
	return marshalEnvelope(e.Type(), e.Data)
}

// ErrorData is the payload of an error event
type ErrorData struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Code      string `json:"code,omitempty"`
}

// ErrorEvent ends the assistant turn with a server-reported failure
type ErrorEvent struct {
	*BaseEvent
	Data ErrorData
}

// NewErrorEvent creates a new error event
func NewErrorEvent(message string, retryable bool, options ...ErrorOption) *ErrorEvent {
	event := &ErrorEvent{
		BaseEvent: NewBaseEvent(EventTypeError),
		Data: ErrorData{
			Message:   message,
			Retryable: retryable,
		},
	}

	for _, opt := range options {
		opt(event)
	}

	return event
}

// ErrorOption defines options for creating error events
type ErrorOption func(*ErrorEvent)

// WithErrorCode sets the machine-readable error code
func WithErrorCode(code string) ErrorOption {
	return func(e *ErrorEvent) {
		e.Data.Code = code
	}
}

// Validate validates the error event
func (e *ErrorEvent) Validate() error {
	if err := e.BaseEvent.Validate(); err != nil {
		return err
	}

	if e.Data.Message == "" {
		return fmt.Errorf("ErrorEvent validation failed: message field is required")
	}

	return nil
}

// ToJSON serializes the event to JSON
func (e *ErrorEvent) ToJSON() ([]byte, error) {
	return marshalEnvelope(e.Type(), e.Data)
}
