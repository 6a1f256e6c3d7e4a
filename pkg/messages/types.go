package messages

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dataada/go-sdk/pkg/core"
)

// MessageRole represents the role of a message sender
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Validate validates that a role is one of the allowed values
func (r MessageRole) Validate() error {
	switch r {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("invalid role: %s", r)
	}
}

// ChatMessage is one entry of a conversation.
type ChatMessage struct {
	ID            string              `json:"id"`
	Role          MessageRole         `json:"role"`
	Content       string              `json:"content"`
	Timestamp     time.Time           `json:"timestamp"`
	ThinkingSteps []core.ThinkingStep `json:"thinkingSteps,omitempty"`
	Chart         *core.ChartConfig   `json:"chart,omitempty"`
	IsLoading     bool                `json:"isLoading,omitempty"`
	Error         string              `json:"error,omitempty"`
	Attachments   []core.FileUpload   `json:"attachments,omitempty"`
}

// NewUserMessage creates a user message
func NewUserMessage(content string, attachments []core.FileUpload) ChatMessage {
	return ChatMessage{
		ID:          uuid.NewString(),
		Role:        RoleUser,
		Content:     content,
		Timestamp:   time.Now(),
		Attachments: cloneAttachments(attachments),
	}
}

// NewAssistantPlaceholder creates an empty, loading assistant message that a
// streaming turn fills in
func NewAssistantPlaceholder() ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
		IsLoading: true,
	}
}

// Validate validates the message
func (m *ChatMessage) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("message ID is required")
	}
	return m.Role.Validate()
}

// Clone returns a deep copy of the message. The chart config is treated as
// immutable and shared.
func (m ChatMessage) Clone() ChatMessage {
	out := m
	if m.ThinkingSteps != nil {
		out.ThinkingSteps = append([]core.ThinkingStep(nil), m.ThinkingSteps...)
	}
	out.Attachments = cloneAttachments(m.Attachments)
	return out
}

// UpsertThinkingStep replaces the step with the same id in place, or appends
// it. It returns the previous status of a replaced step, or "" when the step
// is new.
func (m *ChatMessage) UpsertThinkingStep(step core.ThinkingStep) core.ThinkingStatus {
	for i := range m.ThinkingSteps {
		if m.ThinkingSteps[i].ID == step.ID {
			prev := m.ThinkingSteps[i].Status
			m.ThinkingSteps[i] = step
			return prev
		}
	}
	m.ThinkingSteps = append(m.ThinkingSteps, step)
	return ""
}

func cloneAttachments(files []core.FileUpload) []core.FileUpload {
	if files == nil {
		return nil
	}
	return append([]core.FileUpload(nil), files...)
}
