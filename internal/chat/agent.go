// Package chat runs the tool-augmented conversation loop and persists
// its transcript.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/promotesh/worklog/internal/tools"
)

// Validation errors for incoming turns. Check with errors.Is().
var (
	ErrNoMessages = errors.New("chat: at least one message is required")
	ErrNoSession  = errors.New("chat: session id is required")
	ErrBadRole    = errors.New("chat: message role must be user or assistant")
	ErrEmptyText  = errors.New("chat: message content must not be empty")
	ErrNotConfig  = errors.New("chat: agent misconfigured")
)

const (
	defaultMaxToolSteps = 5
	summarizeTimeout    = 5 * time.Second
	summarizeInputCap   = 500 // runes

	// fallbackResponse is sent when the model finishes a turn without
	// producing any text, which can happen when every step was spent on
	// tool calls.
	fallbackResponse = "I wasn't able to put together an answer this time. Could you rephrase the question?"
)

const systemPromptFormat = `You are a career journal assistant. You help the user review,
search and reflect on their logged work: entries, projects, time spent and priorities.

Be concrete and concise. Ground every answer in the user's actual entries, fetched
through your tools; never invent work the user did not log. When the user asks about a
topic, prefer search_entries; for time ranges or recent activity, prefer fetch_entries;
for broad overviews, prefer fetch_entry_summary.

Today's date is %s.`

// MessageStore is the persistence surface the agent needs.
type MessageStore interface {
	Append(ctx context.Context, userID uuid.UUID, sessionID, role, content string) (*Message, error)
}

// StreamCallback receives incremental response text as the model
// produces it.
type StreamCallback func(ctx context.Context, text string) error

// Response is the outcome of one completed turn.
type Response struct {
	Text string `json:"text"`
}

// Config assembles an Agent.
type Config struct {
	Genkit       *genkit.Genkit
	Messages     MessageStore
	Tools        []ai.Tool
	Logger       *slog.Logger
	ModelName    string
	MaxToolSteps int
}

func (c Config) validate() error {
	if c.Genkit == nil {
		return fmt.Errorf("%w: genkit instance is required", ErrNotConfig)
	}
	if c.Messages == nil {
		return fmt.Errorf("%w: message store is required", ErrNotConfig)
	}
	if c.ModelName == "" {
		return fmt.Errorf("%w: model name is required", ErrNotConfig)
	}
	return nil
}

// Agent drives the conversation loop: it injects the system prompt,
// hands the model its tools, enforces the per-turn step budget, and
// persists both sides of the exchange.
type Agent struct {
	g            *genkit.Genkit
	messages     MessageStore
	tools        []ai.Tool
	logger       *slog.Logger
	modelName    string
	maxToolSteps int
}

// New creates an Agent from cfg.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxToolSteps <= 0 {
		cfg.MaxToolSteps = defaultMaxToolSteps
	}
	return &Agent{
		g:            cfg.Genkit,
		messages:     cfg.Messages,
		tools:        cfg.Tools,
		logger:       cfg.Logger,
		modelName:    cfg.ModelName,
		maxToolSteps: cfg.MaxToolSteps,
	}, nil
}

// RunTurn executes one conversation turn for the given user and session.
//
// The newest user message is persisted before the model call; failure to
// persist is logged and does not block the turn. The assistant reply is
// persisted only after the model finishes successfully, so a provider
// failure leaves no half-written assistant row behind.
func (a *Agent) RunTurn(ctx context.Context, userID uuid.UUID, sessionID string, incoming []IncomingMessage, cb StreamCallback) (*Response, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrNoSession
	}
	if err := validateIncoming(incoming); err != nil {
		return nil, err
	}

	last := incoming[len(incoming)-1]
	if last.Role == RoleUser {
		if _, err := a.messages.Append(ctx, userID, sessionID, RoleUser, last.Content); err != nil {
			a.logger.Error("failed to persist user message",
				"error", err, "user_id", userID, "session_id", sessionID)
		}
	}

	// Tools resolve the owner from context, never from model arguments.
	ctx = tools.ContextWithOwnerID(ctx, userID.String())

	opts := []ai.GenerateOption{
		ai.WithModelName(a.modelName),
		ai.WithSystem(systemPrompt(time.Now())),
		ai.WithMessages(toModelMessages(incoming)...),
		ai.WithMaxTurns(a.maxToolSteps),
	}
	if len(a.tools) > 0 {
		opts = append(opts, ai.WithTools(toolRefs(a.tools)...))
	}
	if cb != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			if text := chunk.Text(); text != "" {
				return cb(ctx, text)
			}
			return nil
		}))
	}

	resp, err := genkit.Generate(ctx, a.g, opts...)
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		a.logger.Warn("model produced empty response, using fallback",
			"user_id", userID, "session_id", sessionID)
		text = fallbackResponse
		if cb != nil {
			if err := cb(ctx, text); err != nil {
				return nil, err
			}
		}
	}

	if _, err := a.messages.Append(ctx, userID, sessionID, RoleAssistant, text); err != nil {
		a.logger.Error("failed to persist assistant message",
			"error", err, "user_id", userID, "session_id", sessionID)
	}

	return &Response{Text: text}, nil
}

// Summarize condenses an entry description into a short title, at most a
// handful of words. The input is capped so a pasted wall of text cannot
// blow the prompt budget.
func (a *Agent) Summarize(ctx context.Context, description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", fmt.Errorf("%w: description is required", ErrEmptyText)
	}
	if runes := []rune(description); len(runes) > summarizeInputCap {
		description = string(runes[:summarizeInputCap])
	}

	ctx, cancel := context.WithTimeout(ctx, summarizeTimeout)
	defer cancel()

	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.modelName),
		ai.WithPrompt("Summarize the following work description into a short title of at most 6 to 8 words. Reply with the title only, no quotes.\n\n%s", description),
	)
	if err != nil {
		return "", fmt.Errorf("generating summary: %w", err)
	}

	title := strings.Trim(strings.TrimSpace(resp.Text()), `"`)
	if title == "" {
		return "", errors.New("chat: summarizer returned no text")
	}
	return title, nil
}

func validateIncoming(incoming []IncomingMessage) error {
	if len(incoming) == 0 {
		return ErrNoMessages
	}
	for i, m := range incoming {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("%w: message %d has role %q", ErrBadRole, i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: message %d", ErrEmptyText, i)
		}
	}
	return nil
}

func toModelMessages(incoming []IncomingMessage) []*ai.Message {
	msgs := make([]*ai.Message, 0, len(incoming))
	for _, m := range incoming {
		switch m.Role {
		case RoleAssistant:
			msgs = append(msgs, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		default:
			msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		}
	}
	return msgs
}

func toolRefs(ts []ai.Tool) []ai.ToolRef {
	refs := make([]ai.ToolRef, 0, len(ts))
	for _, t := range ts {
		refs = append(refs, t)
	}
	return refs
}

func systemPrompt(now time.Time) string {
	return fmt.Sprintf(systemPromptFormat, now.UTC().Format("Monday, January 2, 2006"))
}
