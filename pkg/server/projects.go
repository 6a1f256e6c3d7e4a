package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dataada/go-sdk/pkg/backend"
	"github.com/dataada/go-sdk/pkg/core"
)

var errProjectsDisabled = &core.APIError{Code: core.CodeInternalError, Message: "projects are not configured"}

// requestUser identifies the caller of a /projects request.
func (s *Server) requestUser(r *http.Request) (string, int, *core.APIError) {
	if s.config.Sessions == nil {
		return r.URL.Query().Get("userId"), 0, nil
	}

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return "", http.StatusUnauthorized, core.NewAPIError(core.CodeUnauthorized, "User not authenticated", false)
	}
	session, err := s.config.Sessions.LookupSession(r.Context(), token)
	if err != nil {
		s.logger.WithError(err).Error("Session lookup failed")
		return "", http.StatusInternalServerError, core.NewAPIError(core.CodeInternalError, "session lookup failed", true)
	}
	if session == nil {
		return "", http.StatusUnauthorized, core.NewAPIError(core.CodeTokenExpired, "Session expired", false)
	}
	return session.UserID, 0, nil
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	if s.config.Projects == nil {
		writeError(w, http.StatusNotImplemented, errProjectsDisabled)
		return
	}
	userID, status, apiErr := s.requestUser(r)
	if apiErr != nil {
		writeError(w, status, apiErr)
		return
	}

	projects, err := s.config.Projects.ListProjects(r.Context(), userID)
	if err != nil {
		s.writeProjectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	if s.config.Projects == nil {
		writeError(w, http.StatusNotImplemented, errProjectsDisabled)
		return
	}
	userID, status, apiErr := s.requestUser(r)
	if apiErr != nil {
		writeError(w, status, apiErr)
		return
	}

	var req core.CreateProjectRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeError(w, http.StatusBadRequest, apiErr)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, core.NewAPIError(core.CodeMissingField, "project name is required", false))
		return
	}
	if s.config.Sessions != nil || req.UserID == "" {
		req.UserID = userID
	}

	project, err := s.config.Projects.CreateProject(r.Context(), req)
	if err != nil {
		s.writeProjectError(w, err)
		return
	}
	s.logger.WithField("project_id", project.ID).Info("Project created")
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	if s.config.Projects == nil {
		writeError(w, http.StatusNotImplemented, errProjectsDisabled)
		return
	}
	if _, status, apiErr := s.requestUser(r); apiErr != nil {
		writeError(w, status, apiErr)
		return
	}

	var req core.UpdateProjectRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeError(w, http.StatusBadRequest, apiErr)
		return
	}
	req.ID = r.PathValue("id")

	if _, err := s.config.Projects.UpdateProject(r.Context(), req); err != nil {
		s.writeProjectError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if s.config.Projects == nil {
		writeError(w, http.StatusNotImplemented, errProjectsDisabled)
		return
	}
	if _, status, apiErr := s.requestUser(r); apiErr != nil {
		writeError(w, status, apiErr)
		return
	}

	if err := s.config.Projects.DeleteProject(r.Context(), r.PathValue("id")); err != nil {
		s.writeProjectError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeProjectError(w http.ResponseWriter, err error) {
	if errors.Is(err, backend.ErrProjectNotFound) {
		writeError(w, http.StatusNotFound, core.NewAPIError(core.CodeNotFound, err.Error(), false))
		return
	}
	s.logger.WithError(err).Error("Project operation failed")
	writeError(w, http.StatusInternalServerError, core.NewAPIError(core.CodeInternalError, err.Error(), true))
}
