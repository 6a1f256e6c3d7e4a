package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dataada/go-sdk/pkg/core"
	"github.com/dataada/go-sdk/pkg/core/events"
	"github.com/dataada/go-sdk/pkg/encoding"
)

// ChatStreamEndpoint is the path of the streaming chat endpoint.
const ChatStreamEndpoint = "/chat/stream"

// StreamChat opens POST {base}/chat/stream and decodes the response body into
// events. Opening the stream goes through the same retry policy and
// middleware as Do; once headers have arrived the body is read without a
// timeout until the server closes it or ctx is cancelled.
func (t *Transport) StreamChat(ctx context.Context, req *core.ChatRequest) *EventStream {
	return NewEventStream(ctx, func(ctx context.Context, emit func(events.Event) bool) error {
		if err := req.Validate(); err != nil {
			return &core.APIError{Code: core.CodeValidationError, Message: err.Error()}
		}

		body, err := json.Marshal(req)
		if err != nil {
			return &core.APIError{Code: core.CodeInvalidRequest, Message: err.Error()}
		}

		cc, apiErr := t.newCallConfig([]CallOption{
			WithMethod(http.MethodPost),
			WithBody(body),
			WithHeader("Accept", "text/event-stream"),
		})
		if apiErr != nil {
			return apiErr
		}

		var (
			resp    *http.Response
			release context.CancelFunc
		)
		apiErr = t.execute(ctx, t.resolve(ChatStreamEndpoint), cc, func(r *http.Response, cancel context.CancelFunc) *core.APIError {
			resp, release = r, cancel
			return nil
		})
		if apiErr != nil {
			return apiErr
		}
		defer release()
		defer resp.Body.Close()

		return pump(ctx, encoding.NewDecoder(resp.Body, encoding.WithLogger(t.logger)), emit)
	})
}

// pump forwards decoded events until the decoder is exhausted.
func pump(ctx context.Context, dec *encoding.Decoder, emit func(events.Event) bool) error {
	for {
		event, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &core.APIError{Code: core.CodeNetworkError, Message: err.Error(), Retryable: true}
		}
		if !emit(event) {
			return ctx.Err()
		}
	}
}
