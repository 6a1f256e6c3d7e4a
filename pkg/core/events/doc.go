// Package events provides the typed event set of the Data Ada chat stream protocol.
//
// A chat turn is streamed from the server as a sequence of events. On the wire
// each event is a JSON envelope {"type": ..., "data": ...}; in Go every type tag
// has its own struct, so consumers switch on the concrete type instead of
// decoding an untyped payload.
//
// # Event Types
//
//   - thinking_step: upsert one reasoning step {id, status, text} by id
//   - conclusion: set the answer text; isComplete=false means more is coming
//   - chart: attach a chart configuration to the answer
//   - data: informational data preview, not stored on the message
//   - error: terminal; the turn failed on the server
//   - done: terminal; the turn finished
//
// # Basic Usage
//
//	import "github.com/dataada/go-sdk/pkg/core/events"
//
//	step := events.NewThinkingStepEvent("1", core.StatusLoading, "Reading headers...")
//	data, err := step.ToJSON()
//
//	event, err := events.EventFromJSON(data)
//	switch e := event.(type) {
//	case *events.ThinkingStepEvent:
//		fmt.Println(e.Step.Text)
//	case *events.ConclusionEvent:
//		fmt.Println(e.Data.Content)
//	}
package events
