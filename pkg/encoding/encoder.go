package encoding

import (
	"fmt"
	"io"
	"net/http"

	"github.com/dataada/go-sdk/pkg/core/events"
)

// Encoder writes chat stream events as "data: {json}\n" lines.
type Encoder struct {
	w io.Writer
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one event line and flushes it when w supports flushing.
func (e *Encoder) Encode(event events.Event) error {
	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type(), err)
	}

	if _, err := fmt.Fprintf(e.w, "%s%s\n", DataPrefix, data); err != nil {
		return err
	}

	if f, ok := e.w.(http.Flusher); ok {
		f.Flush()
	}

	return nil
}
