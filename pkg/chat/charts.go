package chat

import (
	"errors"
	"fmt"

	"github.com/dataada/go-sdk/pkg/core"
	"github.com/dataada/go-sdk/pkg/messages"
	"github.com/dataada/go-sdk/pkg/state"
)

// Errors returned by the chart editing methods.
var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNoChart         = errors.New("message has no chart")
)

// UpdateChartOptions applies JSON Patch operations to the chart options of
// the message with the given ID. Paths are relative to the options document,
// e.g. "/title/text". The message is left unchanged on error.
func (s *Session) UpdateChartOptions(messageID string, ops []state.PatchOperation) (core.ChartConfig, error) {
	return s.editChart(messageID, func(chart core.ChartConfig) (core.ChartConfig, error) {
		return state.PatchChartOptions(chart, ops)
	})
}

// MergeChartOptions merges patch into the chart options of the message with
// the given ID. A nil value removes the key.
func (s *Session) MergeChartOptions(messageID string, patch map[string]any) (core.ChartConfig, error) {
	return s.editChart(messageID, func(chart core.ChartConfig) (core.ChartConfig, error) {
		return state.MergeChartOptions(chart, patch)
	})
}

func (s *Session) editChart(messageID string, edit func(core.ChartConfig) (core.ChartConfig, error)) (core.ChartConfig, error) {
	s.mu.Lock()
	if s.active != nil && s.active.assistantID == messageID {
		s.mu.Unlock()
		return core.ChartConfig{}, ErrSessionBusy
	}

	msg, ok := s.history.Get(messageID)
	switch {
	case !ok:
		s.mu.Unlock()
		return core.ChartConfig{}, fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	case msg.Chart == nil:
		s.mu.Unlock()
		return core.ChartConfig{}, fmt.Errorf("%w: %s", ErrNoChart, messageID)
	}

	updated, err := edit(*msg.Chart)
	if err != nil {
		s.mu.Unlock()
		return core.ChartConfig{}, err
	}
	s.history.Update(messageID, func(m *messages.ChatMessage) {
		chart := updated
		m.Chart = &chart
	})
	s.mu.Unlock()

	s.logger.WithField("chart_id", updated.ChartID).Debug("Chart options updated")
	s.notify()
	return updated, nil
}
