package chat

import (
	"github.com/dataada/go-sdk/pkg/core"
)

// SendOption configures a single SendMessage or RetryLastMessage call.
type SendOption func(*sendConfig)

type sendConfig struct {
	files   []core.FileUpload
	onChart func(core.ChartConfig)
}

// WithFiles attaches uploaded files to the message. They are sent with the
// request and kept on the user message so a retry resends them.
func WithFiles(files ...core.FileUpload) SendOption {
	return func(c *sendConfig) {
		c.files = append(c.files, files...)
	}
}

// WithChartHandler registers a callback invoked with every chart the turn
// receives, after the chart is stored on the assistant message. It is never
// invoked once CancelRequest or ClearMessages has returned. The callback runs
// on the stream goroutine and must not call CancelRequest, ClearMessages or
// Close itself.
func WithChartHandler(fn func(core.ChartConfig)) SendOption {
	return func(c *sendConfig) {
		c.onChart = fn
	}
}

func newSendConfig(opts []SendOption) *sendConfig {
	c := &sendConfig{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
