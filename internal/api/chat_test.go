package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promotesh/worklog/internal/chat"
	"github.com/promotesh/worklog/internal/testutil"
)

func TestChatStreamsChunksAndDone(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.agent.chunks = []string{"Hel", "lo ", "there"}

	rec := f.do(http.MethodPost, "/api/chat",
		`{"sessionId":"s-1","messages":[{"role":"user","content":"hi"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	events := testutil.ParseSSE(t, rec.Body.String())
	chunks := testutil.EventsOfType(events, "chunk")
	require.Len(t, chunks, 3)

	var total string
	for _, c := range chunks {
		var payload struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.Unmarshal([]byte(c.Data), &payload))
		total += payload.Text
	}
	assert.Equal(t, "Hello there", total)

	done := testutil.EventsOfType(events, "done")
	require.Len(t, done, 1)
	var donePayload struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal([]byte(done[0].Data), &donePayload))
	assert.Equal(t, "Hello there", donePayload.Text)

	// The authenticated user and session reached the agent.
	assert.Equal(t, testUserID, f.agent.lastUser)
	assert.Equal(t, "s-1", f.agent.lastSess)
	require.Len(t, f.agent.lastMsgs, 1)
	assert.Equal(t, chat.RoleUser, f.agent.lastMsgs[0].Role)
}

func TestChatRejectsInvalidPayloadBeforeStreaming(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{{{`},
		{name: "missing session", body: `{"messages":[{"role":"user","content":"hi"}]}`},
		{name: "no messages", body: `{"sessionId":"s","messages":[]}`},
		{name: "bad role", body: `{"sessionId":"s","messages":[{"role":"system","content":"x"}]}`},
		{name: "empty content", body: `{"sessionId":"s","messages":[{"role":"user","content":""}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := f.do(http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			// Plain JSON error, not a stream.
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestChatRequiresAuth(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.doAnon(http.MethodPost, "/api/chat",
		`{"sessionId":"s","messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatAgentFailureEmitsErrorEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.agent.err = errors.New("provider exploded")

	rec := f.do(http.MethodPost, "/api/chat",
		`{"sessionId":"s","messages":[{"role":"user","content":"hi"}]}`)

	// Headers were already committed as a stream.
	require.Equal(t, http.StatusOK, rec.Code)
	events := testutil.ParseSSE(t, rec.Body.String())
	errs := testutil.EventsOfType(events, "error")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Data, "generation_failed")
	assert.Empty(t, testutil.EventsOfType(events, "done"))
}

func TestChatHistory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.messages.history = []chat.Message{
		{ID: uuid.New(), UserID: testUserID, SessionID: "s-9", Role: chat.RoleUser, Content: "hi", CreatedAt: time.Now().Add(-time.Minute)},
		{ID: uuid.New(), UserID: testUserID, SessionID: "s-9", Role: chat.RoleAssistant, Content: "hello", CreatedAt: time.Now()},
	}

	rec := f.do(http.MethodGet, "/api/chat/history/s-9", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Messages []chat.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "hi", body.Messages[0].Content)
	assert.Equal(t, chat.RoleAssistant, body.Messages[1].Role)
}

func TestChatHistoryStoreFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.messages.err = errors.New("db down")

	rec := f.do(http.MethodGet, "/api/chat/history/s-9", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.agent.summary = "Fixed login redirect loop"

	rec := f.do(http.MethodPost, "/api/chat/summarize",
		`{"description":"spent the day chasing a login redirect loop"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Fixed login redirect loop", body["title"])
}

func TestSummarizeRequiresDescription(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/chat/summarize", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
