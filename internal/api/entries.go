package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/promotesh/worklog/internal/entry"
)

// entryPayload is the body of entry create and update requests. Update
// treats every field as optional.
type entryPayload struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	ProjectID   *string `json:"projectId,omitempty" validate:"omitempty,uuid"`
	TimeSpent   *int32  `json:"timeSpent,omitempty" validate:"omitempty,min=0"`
	Priority    *string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=pending completed"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	entries, err := s.cfg.Entries.List(r.Context(), user.ID, f)
	if err != nil {
		s.log.Error("listing entries failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list entries")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var payload entryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if payload.Title == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "title is required")
		return
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	params := entry.CreateParams{
		Title:       payload.Title,
		Description: payload.Description,
		Category:    payload.Category,
		TimeSpent:   payload.TimeSpent,
		Priority:    payload.Priority,
		Status:      entry.StatusPending,
	}
	if payload.Status != nil {
		params.Status = *payload.Status
	}
	if payload.ProjectID != nil {
		id, err := uuid.Parse(*payload.ProjectID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "projectId must be a UUID")
			return
		}
		params.ProjectID = &id
	}

	// Embedding failures degrade the entry to keyword-only search rather
	// than blocking the write.
	if s.cfg.Vectorizer != nil {
		vec, err := s.cfg.Vectorizer.Vector(r.Context(), entry.EntryText(payload.Title, payload.Description))
		if err != nil {
			s.log.Warn("embedding entry failed, storing without vector",
				"error", err, "user_id", user.ID)
		} else {
			params.Embedding = vec
		}
	}

	created, err := s.cfg.Entries.Create(r.Context(), user.ID, params)
	if err != nil {
		s.log.Error("creating entry failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not create entry")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "entry id must be a UUID")
		return
	}

	e, err := s.cfg.Entries.Get(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, entry.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "entry not found")
			return
		}
		s.log.Error("fetching entry failed", "error", err, "user_id", user.ID, "entry_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not fetch entry")
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "entry id must be a UUID")
		return
	}

	var payload entryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	params := entry.UpdateParams{
		Description: payload.Description,
		Category:    payload.Category,
		TimeSpent:   payload.TimeSpent,
		Priority:    payload.Priority,
		Status:      payload.Status,
	}
	if payload.Title != "" {
		params.Title = &payload.Title
	}
	if payload.ProjectID != nil {
		pid, err := uuid.Parse(*payload.ProjectID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "projectId must be a UUID")
			return
		}
		params.ProjectID = &pid
	}

	updated, err := s.cfg.Entries.Update(r.Context(), user.ID, id, params)
	if err != nil {
		if errors.Is(err, entry.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "entry not found")
			return
		}
		s.log.Error("updating entry failed", "error", err, "user_id", user.ID, "entry_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not update entry")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "entry id must be a UUID")
		return
	}

	if err := s.cfg.Entries.Delete(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, entry.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "entry not found")
			return
		}
		s.log.Error("deleting entry failed", "error", err, "user_id", user.ID, "entry_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not delete entry")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// filterFromQuery parses list filters from the query string.
func filterFromQuery(r *http.Request) (entry.Filter, error) {
	q := r.URL.Query()
	f := entry.Filter{
		Category:   q.Get("category"),
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		TitleQuery: q.Get("q"),
	}

	if v := q.Get("projectId"); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			return f, errors.New("projectId must be a UUID")
		}
		f.ProjectID = v
	}
	if v := q.Get("startDate"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, errors.New("startDate must be YYYY-MM-DD")
		}
		f.StartDate = t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, errors.New("endDate must be YYYY-MM-DD")
		}
		f.EndDate = t.Add(24*time.Hour - time.Nanosecond)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return f, errors.New("limit must be a positive integer")
		}
		f.Limit = int32(n)
	}
	return f, nil
}
