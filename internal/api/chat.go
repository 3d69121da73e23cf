package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/promotesh/worklog/internal/chat"
)

// chatRequest is the body of POST /api/chat.
type chatRequest struct {
	SessionID string                 `json:"sessionId" validate:"required,max=128"`
	Messages  []chat.IncomingMessage `json:"messages" validate:"required,min=1,dive"`
}

// summarizeRequest is the body of POST /api/chat/summarize.
type summarizeRequest struct {
	Description string `json:"description" validate:"required"`
}

// SSE event names emitted by the chat stream.
const (
	eventChunk = "chunk"
	eventDone  = "done"
	eventError = "error"
)

type chunkEvent struct {
	Text string `json:"text"`
}

type doneEvent struct {
	Text string `json:"text"`
}

type errorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleChat runs one conversation turn and streams the reply as
// server-sent events.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	resp, err := s.cfg.Agent.RunTurn(r.Context(), user.ID, req.SessionID, req.Messages,
		func(ctx context.Context, text string) error {
			return writeEvent(w, flusher, eventChunk, chunkEvent{Text: text})
		})
	if err != nil {
		s.log.Error("chat turn failed",
			"error", err, "user_id", user.ID, "session_id", req.SessionID)

		code, message := "generation_failed", "the assistant could not complete this turn"
		if errors.Is(err, chat.ErrNoMessages) || errors.Is(err, chat.ErrNoSession) ||
			errors.Is(err, chat.ErrBadRole) || errors.Is(err, chat.ErrEmptyText) {
			code, message = "invalid_request", err.Error()
		}
		// Headers are already out; the error must travel in-stream.
		_ = writeEvent(w, flusher, eventError, errorEvent{Code: code, Message: message})
		return
	}

	_ = writeEvent(w, flusher, eventDone, doneEvent{Text: resp.Text})
}

// handleChatHistory returns a session transcript, oldest first.
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session id is required")
		return
	}

	messages, err := s.cfg.Messages.History(r.Context(), user.ID, sessionID)
	if err != nil {
		s.log.Error("loading chat history failed",
			"error", err, "user_id", user.ID, "session_id", sessionID)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// handleSummarize condenses a description into a short title.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}

	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	title, err := s.cfg.Agent.Summarize(r.Context(), req.Description)
	if err != nil {
		s.log.Error("summarize failed", "error", err)
		writeError(w, http.StatusInternalServerError, "generation_failed", "could not generate a title")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"title": title})
}

// writeEvent emits one SSE event and flushes it to the client.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("writing %s event: %w", event, err)
	}
	flusher.Flush()
	return nil
}
