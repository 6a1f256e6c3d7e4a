package transport

import (
	"context"
	"io"
	"sync"

	"github.com/dataada/go-sdk/pkg/core"
	"github.com/dataada/go-sdk/pkg/core/events"
)

// Producer feeds events into a stream. emit returns false once the stream
// has been cancelled; the producer should then return promptly.
type Producer func(ctx context.Context, emit func(events.Event) bool) error

// EventStream is a finite, non-restartable sequence of chat events.
// It ends exactly once: either cleanly (Err returns nil) or with one error.
type EventStream struct {
	events chan events.Event
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
	err    error
}

// NewEventStream starts produce in its own goroutine and returns the stream
// it feeds. Cancelling ctx or calling Close stops the producer.
func NewEventStream(ctx context.Context, produce Producer) *EventStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &EventStream{
		events: make(chan events.Event),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(s.done)
		defer cancel()

		aborted := false
		err := produce(ctx, func(event events.Event) bool {
			if ctx.Err() != nil {
				aborted = true
				return false
			}
			select {
			case s.events <- event:
				return true
			case <-ctx.Done():
				aborted = true
				return false
			}
		})
		if err == nil && aborted {
			err = ctx.Err()
		}

		s.err = err
		close(s.events)
	}()

	return s
}

// Events returns the channel of decoded events. It is closed when the
// stream ends.
func (s *EventStream) Events() <-chan events.Event {
	return s.events
}

// Recv returns the next event, io.EOF after a clean end, or the stream error.
func (s *EventStream) Recv() (events.Event, error) {
	event, ok := <-s.events
	if !ok {
		if err := s.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return event, nil
}

// Err blocks until the stream has ended and returns its error, if any.
func (s *EventStream) Err() error {
	<-s.done
	return s.err
}

// Done is closed once the stream has ended.
func (s *EventStream) Done() <-chan struct{} {
	return s.done
}

// Close cancels the stream and waits for the producer to exit.
func (s *EventStream) Close() {
	s.once.Do(s.cancel)
	for range s.events {
	}
	<-s.done
}

// ChatStreamer opens one chat turn as an event stream. Failures are reported
// through the stream, never as a separate return value.
type ChatStreamer interface {
	StreamChat(ctx context.Context, req *core.ChatRequest) *EventStream
}
