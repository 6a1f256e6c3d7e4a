package core

import (
	"fmt"
)

// Response is the discriminated result of a request: either Success with
// Data, or a failure with Error. It is never both.
type Response[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// OK wraps data in a successful response.
func OK[T any](data T) *Response[T] {
	return &Response[T]{Success: true, Data: data}
}

// Fail wraps an error in a failed response.
func Fail[T any](err *APIError) *Response[T] {
	return &Response[T]{Success: false, Error: err}
}

// TaskMode selects the kind of artifact the assistant produces.
type TaskMode string

const (
	ModeChart     TaskMode = "chart"
	ModeDashboard TaskMode = "dashboard"
	ModeExtract   TaskMode = "extract"
	ModeReport    TaskMode = "report"
)

// Validate checks that the mode is empty or one of the known modes.
func (m TaskMode) Validate() error {
	switch m {
	case "", ModeChart, ModeDashboard, ModeExtract, ModeReport:
		return nil
	default:
		return fmt.Errorf("invalid task mode: %s", m)
	}
}

// ThinkingStatus is the progress state of a thinking step.
type ThinkingStatus string

const (
	StatusPending   ThinkingStatus = "pending"
	StatusLoading   ThinkingStatus = "loading"
	StatusCompleted ThinkingStatus = "completed"
)

// Rank orders statuses along pending -> loading -> completed.
// Unknown statuses rank below pending.
func (s ThinkingStatus) Rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusLoading:
		return 2
	case StatusCompleted:
		return 3
	default:
		return 0
	}
}

// Validate checks that the status is known.
func (s ThinkingStatus) Validate() error {
	if s.Rank() == 0 {
		return fmt.Errorf("invalid thinking step status: %q", s)
	}
	return nil
}

// ThinkingStep is one unit of server-side reasoning progress.
type ThinkingStep struct {
	ID     string         `json:"id"`
	Status ThinkingStatus `json:"status"`
	Text   string         `json:"text"`
}

// Dataset is the tabular payload of a chart.
type Dataset struct {
	Dimensions []string         `json:"dimensions"`
	Source     []map[string]any `json:"source"`
}

// ChartConfig tells the rendering collaborator which chart to draw.
// A received config is treated as immutable; updates produce a new value.
type ChartConfig struct {
	ChartID         string           `json:"chart_id"`
	RecommendedType string           `json:"recommended_type"`
	Dataset         Dataset          `json:"dataset"`
	ChartOptions    map[string]any   `json:"chart_options"`
	PreviewData     []map[string]any `json:"preview_data"`
}

// DataPreview is an informational table preview sent during a turn.
type DataPreview struct {
	Data         []map[string]any `json:"data"`
	TotalRows    int              `json:"totalRows"`
	TotalColumns int              `json:"totalColumns"`
}

// FileUpload describes a file attached to a chat request.
type FileUpload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

// ChatRequest is the body of POST /chat/stream.
type ChatRequest struct {
	ProjectID string       `json:"projectId"`
	Message   string       `json:"message"`
	Files     []FileUpload `json:"files,omitempty"`
	Mode      TaskMode     `json:"mode,omitempty"`
	Context   string       `json:"context,omitempty"`
	UserID    string       `json:"userId,omitempty"`
}

// Validate checks the request before it is sent.
func (r *ChatRequest) Validate() error {
	if r.Message == "" && len(r.Files) == 0 {
		return fmt.Errorf("chat request requires a message or at least one file")
	}
	return r.Mode.Validate()
}

// Project is a saved analysis workspace.
type Project struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	UserID        string `json:"user_id"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	FilesCount    int    `json:"files_count,omitempty"`
	MessagesCount int    `json:"messages_count,omitempty"`
}

// CreateProjectRequest is the body of POST /projects.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UserID      string `json:"userId"`
}

// UpdateProjectRequest describes a project update.
type UpdateProjectRequest struct {
	ID          string `json:"-"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// UserProfile is the authenticated user's profile.
type UserProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at"`
}
