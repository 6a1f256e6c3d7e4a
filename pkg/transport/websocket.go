package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/dataada/go-sdk/pkg/core"
	"github.com/dataada/go-sdk/pkg/core/events"
	"github.com/dataada/go-sdk/pkg/encoding"
	"github.com/dataada/go-sdk/pkg/middleware"
)

// ChatSocketEndpoint is the path of the WebSocket chat endpoint.
const ChatSocketEndpoint = "/chat/ws"

// WebSocketStreamer streams chat turns over a WebSocket connection. The client
// sends the chat request as one JSON text frame; the server answers with text
// frames carrying "data: " lines and closes the connection when the turn ends.
//
// The handshake is not retried.
type WebSocketStreamer struct {
	url     string
	dialer  *websocket.Dialer
	chain   *middleware.Chain
	logger  logrus.FieldLogger
	timeout time.Duration
}

// NewWebSocketStreamer creates a streamer using the transport's base URL,
// middleware and timeout.
func NewWebSocketStreamer(t *Transport) *WebSocketStreamer {
	return &WebSocketStreamer{
		url: socketURL(t.resolve(ChatSocketEndpoint)),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: t.timeout,
		},
		chain:   t.chain,
		logger:  t.logger,
		timeout: t.timeout,
	}
}

func socketURL(httpURL string) string {
	switch {
	case strings.HasPrefix(httpURL, "https://"):
		return "wss://" + strings.TrimPrefix(httpURL, "https://")
	case strings.HasPrefix(httpURL, "http://"):
		return "ws://" + strings.TrimPrefix(httpURL, "http://")
	default:
		return httpURL
	}
}

// StreamChat opens one chat turn over a WebSocket connection.
func (w *WebSocketStreamer) StreamChat(ctx context.Context, req *core.ChatRequest) *EventStream {
	return NewEventStream(ctx, func(ctx context.Context, emit func(events.Event) bool) error {
		if err := req.Validate(); err != nil {
			return &core.APIError{Code: core.CodeValidationError, Message: err.Error()}
		}

		conn, err := w.dial(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		// Unblock ReadMessage when the stream is cancelled.
		stop := context.AfterFunc(ctx, func() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "cancelled"),
				time.Now().Add(time.Second))
			conn.Close()
		})
		defer stop()

		if err := conn.WriteJSON(req); err != nil {
			return &core.APIError{Code: core.CodeNetworkError, Message: err.Error(), Retryable: true}
		}

		for {
			msgType, payload, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				return &core.APIError{Code: core.CodeNetworkError, Message: err.Error(), Retryable: true}
			}
			if msgType != websocket.TextMessage {
				w.logger.WithField("message_type", msgType).Warn("ignoring non-text frame")
				continue
			}

			dec := encoding.NewDecoder(bytes.NewReader(payload), encoding.WithLogger(w.logger))
			if err := pump(ctx, dec, emit); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	})
}

func (w *WebSocketStreamer) dial(ctx context.Context) (*websocket.Conn, error) {
	outgoing := &middleware.Request{URL: w.url, Method: http.MethodGet, Header: make(http.Header)}
	if err := w.chain.ApplyRequest(ctx, outgoing); err != nil {
		return nil, &core.APIError{
			Code:    core.CodeInvalidRequest,
			Message: fmt.Sprintf("request interceptor failed: %v", err),
		}
	}

	conn, resp, err := w.dialer.DialContext(ctx, outgoing.URL, outgoing.Header)
	if resp != nil {
		w.chain.NotifyResponse(ctx, resp, outgoing)
	}
	if err == nil {
		return conn, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
		return nil, errorFromResponse(resp)
	}

	apiErr := &core.APIError{Code: core.CodeConnectionFailed, Message: err.Error(), Retryable: true}
	if errors.Is(err, context.DeadlineExceeded) {
		apiErr = timeoutError(w.timeout)
	}
	return nil, apiErr
}
