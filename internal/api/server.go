// Package api exposes the HTTP surface: the streaming chat endpoint,
// entry and project CRUD, activity stats, login, and health probes.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/promotesh/worklog/internal/auth"
	"github.com/promotesh/worklog/internal/chat"
	"github.com/promotesh/worklog/internal/entry"
	"github.com/promotesh/worklog/internal/project"
)

// validate checks request payloads against their struct tags.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Agent runs conversation turns and on-demand summaries.
type Agent interface {
	RunTurn(ctx context.Context, userID uuid.UUID, sessionID string, msgs []chat.IncomingMessage, cb chat.StreamCallback) (*chat.Response, error)
	Summarize(ctx context.Context, description string) (string, error)
}

// MessageHistory reads back a session transcript.
type MessageHistory interface {
	History(ctx context.Context, userID uuid.UUID, sessionID string) ([]chat.Message, error)
}

// EntryStore is the slice of the entry store the handlers need.
type EntryStore interface {
	Create(ctx context.Context, userID uuid.UUID, p entry.CreateParams) (*entry.Entry, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*entry.Entry, error)
	List(ctx context.Context, userID uuid.UUID, f entry.Filter) ([]entry.Entry, error)
	Update(ctx context.Context, userID, id uuid.UUID, p entry.UpdateParams) (*entry.Entry, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DailyCounts(ctx context.Context, userID uuid.UUID) (map[string]int, error)
}

// ProjectStore is the slice of the project store the handlers need.
type ProjectStore interface {
	List(ctx context.Context, userID uuid.UUID) ([]project.Project, error)
	Create(ctx context.Context, userID uuid.UUID, p project.Params) (*project.Project, error)
	Update(ctx context.Context, userID, id uuid.UUID, p project.Params) (*project.Project, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Vectorizer embeds entry text for similarity search. Optional; when
// nil, entries are stored without vectors.
type Vectorizer interface {
	Vector(ctx context.Context, text string) ([]float32, error)
}

// LoginProvider exchanges credentials for a session.
type LoginProvider interface {
	Login(ctx context.Context, creds auth.Credentials) (*auth.Session, error)
}

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config assembles a Server.
type Config struct {
	Logger     *slog.Logger
	Agent      Agent
	Messages   MessageHistory
	Entries    EntryStore
	Projects   ProjectStore
	Vectorizer Vectorizer
	Auth       auth.Verifier
	Login      LoginProvider
	DB         Pinger

	CORSOrigins []string
	TrustProxy  bool
	RateLimit   float64 // tokens per second per IP
	RateBurst   int
}

// Server wires handlers, middleware and dependencies together.
type Server struct {
	cfg Config
	log *slog.Logger
}

// NewServer creates a Server from cfg.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Agent == nil || cfg.Messages == nil || cfg.Entries == nil {
		return nil, errors.New("api: agent, message history and entry store are required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("api: auth verifier is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}
	return &Server{cfg: cfg, log: cfg.Logger}, nil
}

// Handler builds the full middleware chain and route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public routes.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	// Authenticated routes.
	authed := authMiddleware(s.cfg.Auth, s.log)
	protect := func(h http.HandlerFunc) http.Handler { return authed(h) }

	mux.Handle("POST /api/chat", protect(s.handleChat))
	mux.Handle("GET /api/chat/history/{sessionId}", protect(s.handleChatHistory))
	mux.Handle("POST /api/chat/summarize", protect(s.handleSummarize))

	mux.Handle("GET /api/entries", protect(s.handleListEntries))
	mux.Handle("POST /api/entries", protect(s.handleCreateEntry))
	mux.Handle("GET /api/entries/{id}", protect(s.handleGetEntry))
	// Entry updates are partial; PUT is kept for older clients.
	mux.Handle("PATCH /api/entries/{id}", protect(s.handleUpdateEntry))
	mux.Handle("PUT /api/entries/{id}", protect(s.handleUpdateEntry))
	mux.Handle("DELETE /api/entries/{id}", protect(s.handleDeleteEntry))

	mux.Handle("GET /api/projects", protect(s.handleListProjects))
	mux.Handle("POST /api/projects", protect(s.handleCreateProject))
	mux.Handle("PUT /api/projects/{id}", protect(s.handleUpdateProject))
	mux.Handle("DELETE /api/projects/{id}", protect(s.handleDeleteProject))

	mux.Handle("GET /api/stats/daily-counts", protect(s.handleDailyCounts))

	rl := newRateLimiter(s.cfg.RateLimit, s.cfg.RateBurst)

	var h http.Handler = mux
	h = rateLimitMiddleware(rl, s.cfg.TrustProxy, s.log)(h)
	h = corsMiddleware(s.cfg.CORSOrigins)(h)
	h = loggingMiddleware(s.log)(h)
	h = requestIDMiddleware()(h)
	h = recoveryMiddleware(s.log)(h)
	return h
}

// requireUser fetches the authenticated user or writes a 401. Handlers
// behind authMiddleware should always find one; the error path guards
// against misregistered routes.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return nil, false
	}
	return user, true
}
