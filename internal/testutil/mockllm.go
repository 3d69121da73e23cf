// Package testutil holds in-process fakes shared across test suites.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ScriptedModel is a deterministic model for tests. It matches the last
// user message against registered substring patterns (first match wins)
// and replies with the scripted text, optionally preceded by tool
// requests. Safe for concurrent use.
type ScriptedModel struct {
	mu         sync.Mutex
	rules      []scriptRule
	fallback   string
	alwaysTool *ai.ToolRequest
	seen       []string // last user message per call
}

type scriptRule struct {
	pattern string
	text    string
	tools   []*ai.ToolRequest
}

// NewScriptedModel creates a model whose unmatched calls reply with
// fallback.
func NewScriptedModel(fallback string) *ScriptedModel {
	return &ScriptedModel{fallback: fallback}
}

// Reply scripts a text reply for user messages containing pattern
// (case-insensitive).
func (m *ScriptedModel) Reply(pattern, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, scriptRule{pattern: strings.ToLower(pattern), text: text})
}

// ReplyWithTools scripts tool requests plus a text reply for user
// messages containing pattern.
func (m *ScriptedModel) ReplyWithTools(pattern string, tools []*ai.ToolRequest, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, scriptRule{pattern: strings.ToLower(pattern), text: text, tools: tools})
}

// AlwaysRequestTool makes every call reply with tr, no matter what the
// transcript already contains. A runaway model for step-limit tests.
func (m *ScriptedModel) AlwaysRequestTool(tr *ai.ToolRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alwaysTool = tr
}

// Seen returns the last-user-message text of every call so far.
func (m *ScriptedModel) Seen() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.seen))
	copy(cp, m.seen)
	return cp
}

// ScriptedModelName is the name the fake registers under.
const ScriptedModelName = "fake/scripted"

// Register defines the fake on g and returns it.
func (m *ScriptedModel) Register(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, ScriptedModelName, &ai.ModelOptions{
		Label: "Scripted test model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
		},
	}, m.generate)
}

func (m *ScriptedModel) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == ai.RoleUser {
			userText = req.Messages[i].Text()
			break
		}
	}

	m.mu.Lock()
	var matched *scriptRule
	lower := strings.ToLower(userText)
	for i := range m.rules {
		if strings.Contains(lower, m.rules[i].pattern) {
			matched = &m.rules[i]
			break
		}
	}
	text := m.fallback
	if matched != nil {
		text = matched.text
	}
	always := m.alwaysTool
	m.seen = append(m.seen, userText)
	m.mu.Unlock()

	// A rule's tool requests fire only on the first pass; once the
	// transcript contains tool responses the rule falls through to its
	// text reply, mimicking a model that answers after consulting a tool.
	// The always-tool mode never falls through.
	var toolReqs []*ai.ToolRequest
	switch {
	case always != nil:
		toolReqs = []*ai.ToolRequest{always}
	case matched != nil && len(matched.tools) > 0 && !hasToolResponses(req.Messages):
		toolReqs = matched.tools
	}
	wantTools := len(toolReqs) > 0

	if cb != nil && !wantTools && text != "" {
		if err := cb(ctx, &ai.ModelResponseChunk{
			Content: []*ai.Part{ai.NewTextPart(text)},
		}); err != nil {
			return nil, err
		}
	}

	var parts []*ai.Part
	if wantTools {
		for _, tr := range toolReqs {
			parts = append(parts, &ai.Part{Kind: ai.PartToolRequest, ToolRequest: tr})
		}
	} else {
		parts = append(parts, ai.NewTextPart(text))
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{Role: ai.RoleModel, Content: parts},
	}, nil
}

func hasToolResponses(msgs []*ai.Message) bool {
	for _, m := range msgs {
		for _, p := range m.Content {
			if p.Kind == ai.PartToolResponse {
				return true
			}
		}
	}
	return false
}
