package chat

import (
	"context"
	"sync"

	"github.com/dataada/go-sdk/pkg/core"
)

// Outcome is how a turn ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeErrored   Outcome = "errored"
	OutcomeCancelled Outcome = "cancelled"
)

// turnState tracks the single in-flight turn of a session.
type turnState struct {
	ctx         context.Context
	assistantID string
	cancel      context.CancelFunc
	onChart     func(core.ChartConfig)

	// handlerMu is held while onChart runs; cancellation waits on it.
	handlerMu sync.Mutex

	// outcome is written under Session.mu before done is closed.
	outcome Outcome
	done    chan struct{}
}

// waitHandler blocks until a running chart handler has returned.
func (ts *turnState) waitHandler() {
	if ts.onChart == nil {
		return
	}
	ts.handlerMu.Lock()
	ts.handlerMu.Unlock()
}

// Turn is a handle on one send. It is done once the stream has been released
// and the outcome is final.
type Turn struct {
	UserMessageID      string
	AssistantMessageID string

	state *turnState
}

// Done returns a channel that is closed when the turn has ended.
func (t *Turn) Done() <-chan struct{} {
	return t.state.done
}

// Outcome returns the turn's outcome, or "" while it is still running.
func (t *Turn) Outcome() Outcome {
	select {
	case <-t.state.done:
		return t.state.outcome
	default:
		return ""
	}
}

// Wait blocks until the turn ends or ctx is done.
func (t *Turn) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.state.done:
		return t.state.outcome, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
