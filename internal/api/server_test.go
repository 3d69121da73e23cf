package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/promotesh/worklog/internal/api"
	"github.com/promotesh/worklog/internal/auth"
	"github.com/promotesh/worklog/internal/chat"
	"github.com/promotesh/worklog/internal/entry"
	"github.com/promotesh/worklog/internal/log"
	"github.com/promotesh/worklog/internal/project"
)

// Test fixtures shared across the handler suites.

const testToken = "valid-token"

var testUserID = uuid.MustParse("5bb38cb2-4a4f-41ad-a3ac-867ff1ba6a05")

// fakeVerifier accepts exactly one token.
type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, token string) (*auth.User, error) {
	if token != testToken {
		return nil, auth.ErrUnauthorized
	}
	return &auth.User{ID: testUserID, Email: "dev@example.com"}, nil
}

// fakeAgent replies with a scripted stream.
type fakeAgent struct {
	mu        sync.Mutex
	chunks    []string
	err       error
	lastUser  uuid.UUID
	lastSess  string
	lastMsgs  []chat.IncomingMessage
	summary   string
	summErr   error
}

func (a *fakeAgent) RunTurn(ctx context.Context, userID uuid.UUID, sessionID string, msgs []chat.IncomingMessage, cb chat.StreamCallback) (*chat.Response, error) {
	a.mu.Lock()
	a.lastUser = userID
	a.lastSess = sessionID
	a.lastMsgs = msgs
	a.mu.Unlock()

	if a.err != nil {
		return nil, a.err
	}
	for _, c := range a.chunks {
		if cb != nil {
			if err := cb(ctx, c); err != nil {
				return nil, err
			}
		}
	}
	return &chat.Response{Text: strings.Join(a.chunks, "")}, nil
}

func (a *fakeAgent) Summarize(context.Context, string) (string, error) {
	return a.summary, a.summErr
}

// fakeMessages serves canned history.
type fakeMessages struct {
	history []chat.Message
	err     error
	panics  bool
}

func (f *fakeMessages) History(context.Context, uuid.UUID, string) ([]chat.Message, error) {
	if f.panics {
		panic("history blew up")
	}
	return f.history, f.err
}

// fakeEntryStore is an in-memory EntryStore.
type fakeEntryStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]entry.Entry
	counts  map[string]int
	fail    error
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{entries: make(map[uuid.UUID]entry.Entry)}
}

func (f *fakeEntryStore) Create(_ context.Context, userID uuid.UUID, p entry.CreateParams) (*entry.Entry, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e := entry.Entry{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		ProjectID:   p.ProjectID,
		TimeSpent:   p.TimeSpent,
		Priority:    p.Priority,
		Status:      p.Status,
	}
	f.entries[e.ID] = e
	return &e, nil
}

func (f *fakeEntryStore) Get(_ context.Context, userID, id uuid.UUID) (*entry.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.UserID != userID {
		return nil, entry.ErrNotFound
	}
	return &e, nil
}

func (f *fakeEntryStore) List(_ context.Context, userID uuid.UUID, _ entry.Filter) ([]entry.Entry, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entry.Entry
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEntryStore) Update(_ context.Context, userID, id uuid.UUID, p entry.UpdateParams) (*entry.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.UserID != userID {
		return nil, entry.ErrNotFound
	}
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	f.entries[id] = e
	return &e, nil
}

func (f *fakeEntryStore) Delete(_ context.Context, userID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.UserID != userID {
		return entry.ErrNotFound
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeEntryStore) DailyCounts(context.Context, uuid.UUID) (map[string]int, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return f.counts, nil
}

// fakeProjectStore is an in-memory ProjectStore.
type fakeProjectStore struct {
	mu       sync.Mutex
	projects map[uuid.UUID]project.Project
}

func newFakeProjectStore() *fakeProjectStore {
	return &fakeProjectStore{projects: make(map[uuid.UUID]project.Project)}
}

func (f *fakeProjectStore) List(_ context.Context, userID uuid.UUID) ([]project.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []project.Project
	for _, p := range f.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProjectStore) Create(_ context.Context, userID uuid.UUID, params project.Params) (*project.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := project.Project{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       params.Title,
		Description: params.Description,
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
	}
	f.projects[p.ID] = p
	return &p, nil
}

func (f *fakeProjectStore) Update(_ context.Context, userID, id uuid.UUID, params project.Params) (*project.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return nil, project.ErrNotFound
	}
	p.Title = params.Title
	p.Description = params.Description
	p.StartDate = params.StartDate
	p.EndDate = params.EndDate
	f.projects[id] = p
	return &p, nil
}

func (f *fakeProjectStore) Delete(_ context.Context, userID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return project.ErrNotFound
	}
	delete(f.projects, id)
	return nil
}

type fakeLogin struct {
	session *auth.Session
	err     error
}

func (f *fakeLogin) Login(context.Context, auth.Credentials) (*auth.Session, error) {
	return f.session, f.err
}

// fixture bundles a server and its fakes.
type fixture struct {
	agent    *fakeAgent
	messages *fakeMessages
	entries  *fakeEntryStore
	projects *fakeProjectStore
	login    *fakeLogin
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithCORS(t, nil)
}

func newFixtureWithCORS(t *testing.T, origins []string) *fixture {
	t.Helper()
	f := &fixture{
		agent:    &fakeAgent{chunks: []string{"hello"}},
		messages: &fakeMessages{},
		entries:  newFakeEntryStore(),
		projects: newFakeProjectStore(),
		login:    &fakeLogin{err: errors.New("not configured")},
	}

	srv, err := api.NewServer(api.Config{
		Logger:   log.NewNop(),
		Agent:    f.agent,
		Messages: f.messages,
		Entries:  f.entries,
		Projects: f.projects,
		Auth:     fakeVerifier{},
		Login:    f.login,
		CORSOrigins: origins,
		// Generous limits so tests never trip the limiter.
		RateLimit: 1000,
		RateBurst: 1000,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	f.handler = srv.Handler()
	return f
}

// do executes an authenticated request against the fixture.
func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// doAnon executes a request with no credentials.
func (f *fixture) doAnon(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}
