package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/promotesh/worklog/internal/project"
)

// projectPayload is the body of project create and update requests.
// Updates replace the full record.
type projectPayload struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description,omitempty"`
	StartDate   *string `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (p projectPayload) toParams() (project.Params, error) {
	params := project.Params{
		Title:       p.Title,
		Description: p.Description,
	}
	if p.StartDate != nil {
		t, err := time.Parse("2006-01-02", *p.StartDate)
		if err != nil {
			return params, errors.New("startDate must be YYYY-MM-DD")
		}
		params.StartDate = &t
	}
	if p.EndDate != nil {
		t, err := time.Parse("2006-01-02", *p.EndDate)
		if err != nil {
			return params, errors.New("endDate must be YYYY-MM-DD")
		}
		params.EndDate = &t
	}
	return params, nil
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	projects, err := s.cfg.Projects.List(r.Context(), user.ID)
	if err != nil {
		s.log.Error("listing projects failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list projects")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	payload, ok := s.decodeProject(w, r)
	if !ok {
		return
	}

	params, err := payload.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	created, err := s.cfg.Projects.Create(r.Context(), user.ID, params)
	if err != nil {
		s.log.Error("creating project failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not create project")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "project id must be a UUID")
		return
	}

	payload, ok := s.decodeProject(w, r)
	if !ok {
		return
	}

	params, err := payload.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	updated, err := s.cfg.Projects.Update(r.Context(), user.ID, id, params)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "project not found")
			return
		}
		s.log.Error("updating project failed", "error", err, "user_id", user.ID, "project_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not update project")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "project id must be a UUID")
		return
	}

	if err := s.cfg.Projects.Delete(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, project.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "project not found")
			return
		}
		s.log.Error("deleting project failed", "error", err, "user_id", user.ID, "project_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not delete project")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodeProject(w http.ResponseWriter, r *http.Request) (projectPayload, bool) {
	var payload projectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return payload, false
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return payload, false
	}
	return payload, true
}
