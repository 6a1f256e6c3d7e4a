package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/dataada/go-sdk/pkg/backend"
	"github.com/dataada/go-sdk/pkg/core"
	"github.com/dataada/go-sdk/pkg/core/events"
	"github.com/dataada/go-sdk/pkg/encoding"
	"github.com/dataada/go-sdk/pkg/transport"
)

// DefaultBasePath is the path prefix of every endpoint.
const DefaultBasePath = "/api"

// maxRequestBytes bounds JSON request bodies.
const maxRequestBytes = 1 << 20

// SessionLookup resolves bearer tokens. *backend.SQLite implements it.
type SessionLookup interface {
	LookupSession(ctx context.Context, token string) (*backend.Session, error)
}

// Server hosts the chat endpoints and routes each turn to the streamer
// registered for its task mode.
type Server struct {
	config    *Config
	logger    logrus.FieldLogger
	streamers map[core.TaskMode]transport.ChatStreamer
	mu        sync.RWMutex
	upgrader  websocket.Upgrader
	handler   http.Handler

	// ctx is the base context of every request; Shutdown cancels it so that
	// open streams end.
	ctx    context.Context
	cancel context.CancelFunc

	httpMu     sync.Mutex
	httpServer *http.Server
}

// Config contains configuration options for the server.
type Config struct {
	// Address is the server listen address (e.g., ":8080")
	Address string

	// BasePath prefixes every route. Defaults to DefaultBasePath.
	BasePath string

	// Streamer serves chat turns whose mode has no registered streamer.
	Streamer transport.ChatStreamer

	// Projects backs the /projects routes. They answer 501 when nil.
	Projects backend.Projects

	// Sessions authenticates /projects requests by bearer token. When nil
	// the user is taken from the userId query parameter.
	Sessions SessionLookup

	ReadHeaderTimeout time.Duration

	Logger logrus.FieldLogger
}

// New creates a new server with the specified configuration.
func New(config Config) (*Server, error) {
	if config.Streamer == nil {
		return nil, &core.ConfigError{Field: "Streamer", Value: nil, Err: core.ErrInvalidConfig}
	}
	if config.BasePath == "" {
		config.BasePath = DefaultBasePath
	}
	config.BasePath = "/" + strings.Trim(config.BasePath, "/")
	if config.BasePath == "/" {
		config.BasePath = ""
	}
	if config.ReadHeaderTimeout == 0 {
		config.ReadHeaderTimeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:    &config,
		logger:    config.Logger,
		streamers: make(map[core.TaskMode]transport.ChatStreamer),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
	s.handler = s.routes()
	return s, nil
}

// RegisterStreamer routes chat turns with the given mode to streamer.
func (s *Server) RegisterStreamer(mode core.TaskMode, streamer transport.ChatStreamer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamers[mode] = streamer
}

// UnregisterStreamer removes the streamer of a mode.
func (s *Server) UnregisterStreamer(mode core.TaskMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streamers, mode)
}

// GetStreamer returns the streamer serving mode and whether it was
// registered for that mode specifically.
func (s *Server) GetStreamer(mode core.TaskMode) (transport.ChatStreamer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if streamer, ok := s.streamers[mode]; ok {
		return streamer, true
	}
	return s.config.Streamer, false
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	base := s.config.BasePath
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+base+"/health", s.handleHealth)
	mux.HandleFunc("POST "+base+transport.ChatStreamEndpoint, s.handleChatStream)
	mux.HandleFunc("GET "+base+transport.ChatSocketEndpoint, s.handleChatSocket)
	mux.HandleFunc("GET "+base+"/projects", s.handleListProjects)
	mux.HandleFunc("POST "+base+"/projects", s.handleCreateProject)
	mux.HandleFunc("PUT "+base+"/projects/{id}", s.handleUpdateProject)
	mux.HandleFunc("DELETE "+base+"/projects/{id}", s.handleDeleteProject)
	return mux
}

// ListenAndServe starts the server and listens for incoming connections.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}

	s.httpMu.Lock()
	if s.ctx.Err() != nil {
		s.httpMu.Unlock()
		return http.ErrServerClosed
	}
	s.httpServer = srv
	s.httpMu.Unlock()

	s.logger.WithField("address", l.Addr().String()).Info("Starting Data Ada dev server")
	err := srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown ends open streams and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.httpMu.Lock()
	s.cancel()
	srv := s.httpServer
	s.httpMu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON reads a bounded JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) *core.APIError {
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return &core.APIError{Code: core.CodeInvalidRequest, Message: fmt.Sprintf("invalid request body: %v", err)}
	}
	return nil
}

func validateChatRequest(req *core.ChatRequest) *core.APIError {
	if err := req.Validate(); err != nil {
		return &core.APIError{Code: core.CodeValidationError, Message: err.Error()}
	}
	return nil
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req := &core.ChatRequest{}
	apiErr := decodeJSON(w, r, req)
	if apiErr == nil {
		apiErr = validateChatRequest(req)
	}
	if apiErr != nil {
		writeError(w, http.StatusBadRequest, apiErr)
		return
	}

	log := s.logger.WithFields(logrus.Fields{"project_id": req.ProjectID, "mode": req.Mode})
	streamer, _ := s.GetStreamer(req.Mode)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	s.relay(r.Context(), streamer, req, encoding.NewEncoder(w), log)
}

// relay copies one turn into enc and ends it with a done or error event.
func (s *Server) relay(ctx context.Context, streamer transport.ChatStreamer, req *core.ChatRequest, enc eventEncoder, log logrus.FieldLogger) {
	stream := streamer.StreamChat(ctx, req)
	defer stream.Close()

	count := 0
	for event := range stream.Events() {
		if err := enc.Encode(event); err != nil {
			log.WithError(err).Debug("Client went away")
			return
		}
		count++
		if events.IsTerminal(event) {
			return
		}
	}

	err := stream.Err()
	if ctx.Err() != nil {
		return
	}

	var last events.Event = events.NewDoneEvent()
	if err != nil {
		log.WithError(err).Warn("Chat turn failed")
		last = errorEvent(err)
	}
	if err := enc.Encode(last); err != nil {
		log.WithError(err).Debug("Client went away")
		return
	}
	log.WithField("events", count).Info("Chat turn streamed")
}

type eventEncoder interface {
	Encode(events.Event) error
}

func errorEvent(err error) *events.ErrorEvent {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return events.NewErrorEvent(apiErr.Message, apiErr.Retryable, events.WithErrorCode(string(apiErr.Code)))
	}
	return events.NewErrorEvent(err.Error(), false, events.WithErrorCode(string(core.CodeInternalError)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the {"error":{code,message,details}} body the
// transport parses.
func writeError(w http.ResponseWriter, status int, apiErr *core.APIError) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
			"details": apiErr.Details,
		},
	})
}
