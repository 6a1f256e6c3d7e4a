package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dataada/go-sdk/pkg/core"
	"github.com/dataada/go-sdk/pkg/transport"
)

// ListProjects returns the project history of the current user.
func (c *Client) ListProjects(ctx context.Context) *core.Response[[]core.Project] {
	if c.useMock {
		return core.OK([]core.Project{})
	}
	return transport.Request[[]core.Project](ctx, c.transport, "/projects")
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, req core.CreateProjectRequest) *core.Response[core.Project] {
	if req.Name == "" {
		return core.Fail[core.Project](core.NewAPIError(core.CodeMissingField, "project name is required", false))
	}

	if c.useMock {
		if err := wait(ctx, c.mockConfig.APIDelay); err != nil {
			return core.Fail[core.Project](core.NewAPIError(core.CodeNetworkError, "request cancelled", false))
		}
		now := c.now()
		stamp := now.UTC().Format(time.RFC3339)
		return core.OK(core.Project{
			ID:          fmt.Sprintf("project_%d", now.UnixMilli()),
			Name:        req.Name,
			Description: req.Description,
			UserID:      req.UserID,
			CreatedAt:   stamp,
			UpdatedAt:   stamp,
		})
	}

	return transport.Request[core.Project](ctx, c.transport, "/projects",
		transport.WithMethod(http.MethodPost),
		transport.WithJSON(req),
	)
}

// SaveProject updates a project's name and description.
func (c *Client) SaveProject(ctx context.Context, req core.UpdateProjectRequest) *core.Response[struct{}] {
	if req.ID == "" {
		return core.Fail[struct{}](core.NewAPIError(core.CodeMissingField, "project id is required", false))
	}
	if c.useMock {
		return core.OK(struct{}{})
	}

	return transport.Request[struct{}](ctx, c.transport, "/projects/"+url.PathEscape(req.ID),
		transport.WithMethod(http.MethodPut),
		transport.WithJSON(req),
	)
}

// DeleteProject deletes a project.
func (c *Client) DeleteProject(ctx context.Context, id string) *core.Response[struct{}] {
	if id == "" {
		return core.Fail[struct{}](core.NewAPIError(core.CodeMissingField, "project id is required", false))
	}
	if c.useMock {
		return core.OK(struct{}{})
	}

	return transport.Request[struct{}](ctx, c.transport, "/projects/"+url.PathEscape(id),
		transport.WithMethod(http.MethodDelete),
	)
}
