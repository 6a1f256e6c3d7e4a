package messages

import (
	"fmt"
	"sync"
)

// HistoryOptions configures the message history behavior
type HistoryOptions struct {
	MaxMessages int // Maximum number of messages to keep, 0 for no limit
}

// DefaultHistoryOptions returns default history options
func DefaultHistoryOptions() HistoryOptions {
	return HistoryOptions{}
}

// History is an ordered conversation with an id index
type History struct {
	mu       sync.RWMutex
	messages []ChatMessage
	index    map[string]int // Message ID to index mapping
	options  HistoryOptions
}

// NewHistory creates a new message history
func NewHistory(options ...HistoryOptions) *History {
	opts := DefaultHistoryOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &History{
		index:   make(map[string]int),
		options: opts,
	}
}

// Append adds a message at the end of the history
func (h *History) Append(msg ChatMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.index[msg.ID]; exists {
		return fmt.Errorf("message with ID %s already exists", msg.ID)
	}

	h.messages = append(h.messages, msg.Clone())
	h.index[msg.ID] = len(h.messages) - 1

	if h.options.MaxMessages > 0 && len(h.messages) > h.options.MaxMessages {
		h.messages = h.messages[len(h.messages)-h.options.MaxMessages:]
		h.reindex()
	}

	return nil
}

// Get retrieves a copy of a message by ID
func (h *History) Get(id string) (ChatMessage, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	idx, exists := h.index[id]
	if !exists {
		return ChatMessage{}, false
	}
	return h.messages[idx].Clone(), true
}

// Update applies fn to the message with the given ID. It reports whether the
// message exists; fn is not called otherwise.
func (h *History) Update(id string, fn func(*ChatMessage)) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx, exists := h.index[id]
	if !exists {
		return false
	}
	fn(&h.messages[idx])
	return true
}

// Remove deletes the message with the given ID
func (h *History) Remove(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx, exists := h.index[id]
	if !exists {
		return false
	}

	h.messages = append(h.messages[:idx], h.messages[idx+1:]...)
	h.reindex()
	return true
}

// LastByRole returns the most recent message with the given role
func (h *History) LastByRole(role MessageRole) (ChatMessage, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := len(h.messages) - 1; i >= 0; i-- {
		if h.messages[i].Role == role {
			return h.messages[i].Clone(), true
		}
	}
	return ChatMessage{}, false
}

// Last returns the most recent message
func (h *History) Last() (ChatMessage, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.messages) == 0 {
		return ChatMessage{}, false
	}
	return h.messages[len(h.messages)-1].Clone(), true
}

// Messages returns copies of all messages in order
func (h *History) Messages() []ChatMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]ChatMessage, len(h.messages))
	for i, msg := range h.messages {
		result[i] = msg.Clone()
	}
	return result
}

// Size returns the current number of messages
func (h *History) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Clear removes all messages from the history
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = nil
	h.index = make(map[string]int)
}

func (h *History) reindex() {
	h.index = make(map[string]int, len(h.messages))
	for i, msg := range h.messages {
		h.index[msg.ID] = i
	}
}
