package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/dataada/go-sdk/pkg/core"
	"github.com/dataada/go-sdk/pkg/core/events"
	"github.com/dataada/go-sdk/pkg/encoding"
)

// closeGrace bounds how long the server waits for the peer's close frame.
const closeGrace = time.Second

// socketEncoder writes each event as one text frame holding a "data: " line.
type socketEncoder struct {
	conn *websocket.Conn
}

func (e socketEncoder) Encode(event events.Event) error {
	w, err := e.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if err := encoding.NewEncoder(w).Encode(event); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// handleChatSocket serves one chat turn per connection: the first text frame
// is the chat request, the answer is a sequence of event frames followed by
// a normal close.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxRequestBytes)

	enc := socketEncoder{conn: conn}
	req := &core.ChatRequest{}
	if err := conn.ReadJSON(req); err != nil {
		_ = enc.Encode(errorEvent(&core.APIError{Code: core.CodeInvalidRequest, Message: "invalid chat request: " + err.Error()}))
		closeSocket(conn)
		return
	}
	if apiErr := validateChatRequest(req); apiErr != nil {
		_ = enc.Encode(errorEvent(apiErr))
		closeSocket(conn)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The peer cancels a turn by closing the connection.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	log := s.logger.WithFields(logrus.Fields{"project_id": req.ProjectID, "mode": req.Mode, "transport": "websocket"})
	streamer, _ := s.GetStreamer(req.Mode)
	s.relay(ctx, streamer, req, enc, log)

	closeSocket(conn)
	select {
	case <-readerDone:
	case <-time.After(closeGrace):
	}
	conn.Close()
	<-readerDone
}

func closeSocket(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGrace))
}
