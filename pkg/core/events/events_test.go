package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataada/go-sdk/pkg/core"
)

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr string
	}{
		{
			name:  "valid thinking step",
			event: NewThinkingStepEvent("1", core.StatusLoading, "reading"),
		},
		{
			name:    "thinking step without id",
			event:   NewThinkingStepEvent("", core.StatusLoading, "reading"),
			wantErr: "id field is required",
		},
		{
			name:    "thinking step with unknown status",
			event:   NewThinkingStepEvent("1", "finished", "reading"),
			wantErr: "invalid thinking step status",
		},
		{
			name:  "conclusion",
			event: NewConclusionEvent("answer", true),
		},
		{
			name:  "chart",
			event: NewChartEvent(core.ChartConfig{ChartID: "c1", RecommendedType: "bar"}),
		},
		{
			name:    "chart without type",
			event:   NewChartEvent(core.ChartConfig{ChartID: "c1"}),
			wantErr: "recommended_type field is required",
		},
		{
			name:  "data",
			event: NewDataEvent(core.DataPreview{TotalRows: 3}),
		},
		{
			name:  "done",
			event: NewDoneEvent(),
		},
		{
			name:  "error",
			event: NewErrorEvent("boom", true, WithErrorCode("INTERNAL_ERROR")),
		},
		{
			name:    "error without message",
			event:   NewErrorEvent("", false),
			wantErr: "message field is required",
		},
		{
			name:    "base event with invalid type",
			event:   &DoneEvent{BaseEvent: NewBaseEvent("finish")},
			wantErr: "invalid event type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(NewDoneEvent()))
	assert.True(t, IsTerminal(NewErrorEvent("x", false)))
	assert.False(t, IsTerminal(NewConclusionEvent("x", true)))
	assert.False(t, IsTerminal(NewThinkingStepEvent("1", core.StatusPending, "x")))
}

func TestEventOptions(t *testing.T) {
	done := NewDoneEvent(WithDoneMessage("finished"))
	assert.Equal(t, "finished", done.Data.Message)

	errEvent := NewErrorEvent("quota", false, WithErrorCode("SERVICE_UNAVAILABLE"))
	assert.Equal(t, "SERVICE_UNAVAILABLE", errEvent.Data.Code)
	assert.False(t, errEvent.Data.Retryable)
}
