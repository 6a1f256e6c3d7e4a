package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dataada/go-sdk/pkg/core"
	"github.com/dataada/go-sdk/pkg/core/events"
	"github.com/dataada/go-sdk/pkg/messages"
	"github.com/dataada/go-sdk/pkg/transport"
)

// CancelledMessage is the error recorded on an assistant message whose turn
// was cancelled.
const CancelledMessage = "Request cancelled"

// Errors returned by SendMessage and RetryLastMessage. The session is left
// untouched when one of them is returned.
var (
	ErrSessionBusy    = errors.New("a request is already in flight")
	ErrEmptyMessage   = errors.New("message requires text or at least one file")
	ErrNothingToRetry = errors.New("no user message to retry")
)

// State is the session's request state.
type State int

const (
	StateIdle State = iota
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of the session state handed to change observers.
type Snapshot struct {
	State    State
	Mode     core.TaskMode
	Messages []messages.ChatMessage
}

// Config configures a Session.
type Config struct {
	// Streamer opens chat streams. A *client.Client or any transport streamer
	// can be used.
	Streamer transport.ChatStreamer

	ProjectID string
	UserID    string

	// Mode is the initial task mode; empty means unset.
	Mode core.TaskMode

	// OnChange is called with a snapshot after every state change. It may be
	// called from the goroutine that reads the stream and must not block.
	OnChange func(Snapshot)

	Logger logrus.FieldLogger
}

// Session is one conversation with at most one turn in flight.
type Session struct {
	streamer  transport.ChatStreamer
	projectID string
	userID    string
	onChange  func(Snapshot)
	logger    logrus.FieldLogger
	now       func() time.Time

	history *messages.History

	mu     sync.Mutex
	mode   core.TaskMode
	active *turnState
}

// NewSession creates an idle session with an empty history.
func NewSession(config Config) (*Session, error) {
	if config.Streamer == nil {
		return nil, &core.ConfigError{Field: "Streamer", Value: nil, Err: core.ErrInvalidConfig}
	}
	if err := config.Mode.Validate(); err != nil {
		return nil, &core.ConfigError{Field: "Mode", Value: config.Mode, Err: err}
	}

	logger := config.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Session{
		streamer:  config.Streamer,
		projectID: config.ProjectID,
		userID:    config.UserID,
		onChange:  config.OnChange,
		logger:    logger.WithField("project_id", config.ProjectID),
		now:       time.Now,
		history:   messages.NewHistory(),
		mode:      config.Mode,
	}, nil
}

// SendMessage starts a turn. It appends the user message and a loading
// assistant placeholder, then streams the response into the placeholder in
// the background. The returned Turn reports when the turn has ended.
//
// Cancelling ctx cancels the turn.
func (s *Session) SendMessage(ctx context.Context, content string, opts ...SendOption) (*Turn, error) {
	cfg := newSendConfig(opts)
	if strings.TrimSpace(content) == "" && len(cfg.files) == 0 {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return nil, ErrSessionBusy
	}
	p, err := s.beginLocked(ctx, content, cfg)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.launch(p)
	return p.turn, nil
}

// RetryLastMessage discards the most recent assistant message and sends the
// most recent user message again, with the same attachments.
func (s *Session) RetryLastMessage(ctx context.Context, opts ...SendOption) (*Turn, error) {
	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return nil, ErrSessionBusy
	}

	last, ok := s.history.LastByRole(messages.RoleUser)
	if !ok {
		s.mu.Unlock()
		return nil, ErrNothingToRetry
	}
	if reply, ok := s.history.LastByRole(messages.RoleAssistant); ok {
		s.history.Remove(reply.ID)
	}

	cfg := newSendConfig(append([]SendOption{WithFiles(last.Attachments...)}, opts...))
	p, err := s.beginLocked(ctx, last.Content, cfg)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.logger.WithField("message_id", last.ID).Info("Retrying last message")
	s.launch(p)
	return p.turn, nil
}

// CancelRequest aborts the in-flight turn and marks its assistant message as
// cancelled. Events that arrive afterwards are ignored. It reports whether a
// turn was active.
func (s *Session) CancelRequest() bool {
	s.mu.Lock()
	ts := s.active
	if ts == nil {
		s.mu.Unlock()
		return false
	}
	s.active = nil
	ts.outcome = OutcomeCancelled
	s.history.Update(ts.assistantID, func(msg *messages.ChatMessage) {
		msg.IsLoading = false
		msg.Error = CancelledMessage
	})
	s.mu.Unlock()

	ts.cancel()
	ts.waitHandler()
	s.logger.WithField("message_id", ts.assistantID).Info("Chat request cancelled")
	s.notify()
	return true
}

// ClearMessages empties the history and drops any in-flight turn.
func (s *Session) ClearMessages() {
	s.mu.Lock()
	ts := s.active
	s.active = nil
	if ts != nil {
		ts.outcome = OutcomeCancelled
	}
	s.history.Clear()
	s.mu.Unlock()

	if ts != nil {
		ts.cancel()
		ts.waitHandler()
	}
	s.notify()
}

// Close cancels the in-flight turn, if any, and waits for its stream to be
// released.
func (s *Session) Close() {
	s.mu.Lock()
	ts := s.active
	s.mu.Unlock()

	s.CancelRequest()
	if ts != nil {
		<-ts.done
	}
}

// SetMode changes the task mode sent with subsequent requests.
func (s *Session) SetMode(mode core.TaskMode) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	s.notify()
	return nil
}

// Mode returns the current task mode.
func (s *Session) Mode() core.TaskMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// State returns StateStreaming while a turn is in flight.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// IsLoading reports whether a turn is in flight.
func (s *Session) IsLoading() bool {
	return s.State() == StateStreaming
}

// Messages returns a copy of the conversation.
func (s *Session) Messages() []messages.ChatMessage {
	return s.history.Messages()
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:    s.stateLocked(),
		Mode:     s.mode,
		Messages: s.history.Messages(),
	}
}

// ExportChat renders the conversation as a text transcript.
func (s *Session) ExportChat() string {
	return messages.Export(s.history.Messages())
}

// ExportTo writes the transcript to w.
func (s *Session) ExportTo(w io.Writer) error {
	return messages.ExportTo(w, s.history.Messages())
}

// ExportFile writes the transcript into dir and returns the file path.
func (s *Session) ExportFile(dir string) (string, error) {
	return messages.ExportFile(dir, s.history.Messages(), s.now())
}

func (s *Session) stateLocked() State {
	if s.active != nil {
		return StateStreaming
	}
	return StateIdle
}

// pendingTurn is a turn that has been registered but whose stream is not
// open yet.
type pendingTurn struct {
	ctx  context.Context
	turn *Turn
	req  *core.ChatRequest
}

func (s *Session) beginLocked(ctx context.Context, content string, cfg *sendConfig) (*pendingTurn, error) {
	user := messages.NewUserMessage(content, cfg.files)
	assistant := messages.NewAssistantPlaceholder()
	if err := s.history.Append(user); err != nil {
		return nil, err
	}
	if err := s.history.Append(assistant); err != nil {
		s.history.Remove(user.ID)
		return nil, err
	}

	turnCtx, cancel := context.WithCancel(ctx)
	ts := &turnState{
		ctx:         turnCtx,
		assistantID: assistant.ID,
		cancel:      cancel,
		onChart:     cfg.onChart,
		done:        make(chan struct{}),
	}
	s.active = ts

	return &pendingTurn{
		ctx: turnCtx,
		turn: &Turn{
			UserMessageID:      user.ID,
			AssistantMessageID: assistant.ID,
			state:              ts,
		},
		req: &core.ChatRequest{
			ProjectID: s.projectID,
			Message:   content,
			Files:     user.Attachments,
			Mode:      s.mode,
			UserID:    s.userID,
		},
	}, nil
}

func (s *Session) launch(p *pendingTurn) {
	s.logger.WithFields(logrus.Fields{
		"message_id": p.turn.AssistantMessageID,
		"mode":       p.req.Mode,
		"files":      len(p.req.Files),
	}).Debug("Starting chat turn")
	s.notify()

	stream := s.streamer.StreamChat(p.ctx, p.req)
	go s.run(p.turn.state, stream)
}

func (s *Session) run(ts *turnState, stream *transport.EventStream) {
	defer close(ts.done)
	defer stream.Close()

	for event := range stream.Events() {
		if !s.apply(ts, event) {
			return
		}
	}
	s.finish(ts, stream.Err())
}

// apply folds one event into the turn's assistant message. It returns false
// once the turn is no longer active.
func (s *Session) apply(ts *turnState, event events.Event) bool {
	s.mu.Lock()
	if s.active != ts {
		s.mu.Unlock()
		return false
	}

	var (
		chart    *core.ChartConfig
		changed  = true
		terminal bool
	)
	found := s.history.Update(ts.assistantID, func(msg *messages.ChatMessage) {
		switch e := event.(type) {
		case *events.ThinkingStepEvent:
			prev := msg.UpsertThinkingStep(e.Step)
			if prev != "" && e.Step.Status.Rank() < prev.Rank() {
				s.logger.WithFields(logrus.Fields{
					"step_id": e.Step.ID,
					"from":    prev,
					"to":      e.Step.Status,
				}).Warn("Thinking step status regressed")
			}
		case *events.ConclusionEvent:
			msg.Content = e.Data.Content
			msg.IsLoading = !e.Data.IsComplete
		case *events.ChartEvent:
			c := e.Chart
			msg.Chart = &c
			chart = &c
		case *events.DataEvent:
			changed = false
			s.logger.WithFields(logrus.Fields{
				"total_rows":    e.Preview.TotalRows,
				"total_columns": e.Preview.TotalColumns,
			}).Debug("Data preview received")
		case *events.DoneEvent:
			msg.IsLoading = false
			terminal = true
			ts.outcome = OutcomeCompleted
		case *events.ErrorEvent:
			msg.IsLoading = false
			msg.Error = e.Data.Message
			terminal = true
			ts.outcome = OutcomeErrored
		}
	})
	if !found {
		s.active = nil
		ts.outcome = OutcomeCancelled
		s.mu.Unlock()
		ts.cancel()
		s.notify()
		return false
	}
	if terminal {
		s.active = nil
	}
	s.mu.Unlock()

	if chart != nil && ts.onChart != nil {
		s.deliverChart(ts, *chart)
	}
	if changed {
		s.notify()
	}
	return !terminal
}

// deliverChart runs the chart handler unless the turn has been cancelled or
// cleared in the meantime.
func (s *Session) deliverChart(ts *turnState, chart core.ChartConfig) {
	ts.handlerMu.Lock()
	defer ts.handlerMu.Unlock()

	s.mu.Lock()
	live := s.active == ts
	s.mu.Unlock()
	if live {
		ts.onChart(chart)
	}
}

// finish settles a turn whose stream ended without a terminal event.
func (s *Session) finish(ts *turnState, err error) {
	s.mu.Lock()
	if s.active != ts {
		s.mu.Unlock()
		return
	}
	s.active = nil

	log := s.logger.WithField("message_id", ts.assistantID)
	switch {
	case err == nil:
		ts.outcome = OutcomeCompleted
		s.history.Update(ts.assistantID, func(msg *messages.ChatMessage) {
			msg.IsLoading = false
		})
	case ts.ctx.Err() != nil:
		ts.outcome = OutcomeCancelled
		s.history.Update(ts.assistantID, func(msg *messages.ChatMessage) {
			msg.IsLoading = false
			msg.Error = CancelledMessage
		})
	default:
		ts.outcome = OutcomeErrored
		s.history.Update(ts.assistantID, func(msg *messages.ChatMessage) {
			msg.IsLoading = false
			msg.Error = errorMessage(err)
		})
		log = log.WithError(err)
	}
	s.mu.Unlock()

	log.WithField("outcome", ts.outcome).Info("Chat turn finished")
	s.notify()
}

func (s *Session) notify() {
	if s.onChange == nil {
		return
	}
	s.onChange(s.Snapshot())
}

func errorMessage(err error) string {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
