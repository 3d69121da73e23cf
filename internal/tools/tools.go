// Package tools defines the data-access tools the chat agent can call.
//
// Handlers never trust model-supplied arguments for identity: the owning
// user is taken from the request context, and argument validation errors
// are returned in-band as structured Results so the model can correct
// itself within the same turn.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/promotesh/worklog/internal/entry"
)

// Tool names as exposed to the model.
const (
	NameFetchEntries = "fetch_entries"
	NameFetchSummary = "fetch_entry_summary"
	NameSearch       = "search_entries"
)

const dateFormat = "2006-01-02"

// EntryReader is the slice of the entry store the tools need.
type EntryReader interface {
	List(ctx context.Context, userID uuid.UUID, f entry.Filter) ([]entry.Entry, error)
	Summaries(ctx context.Context, userID uuid.UUID, f entry.Filter) ([]entry.Summary, error)
	SemanticSearch(ctx context.Context, userID uuid.UUID, queryVec []float32, threshold float64, limit int32) ([]entry.Match, error)
	TitleSearch(ctx context.Context, userID uuid.UUID, query string, limit int32) ([]entry.Entry, error)
}

// Embedder turns query text into a vector for similarity search.
type Embedder interface {
	Vector(ctx context.Context, text string) ([]float32, error)
}

// Limits caps tool result sizes. Zero fields fall back to the defaults
// in normalize.
type Limits struct {
	FetchDefault    int32
	FetchMax        int32
	SummaryDefault  int32
	SummaryMax      int32
	SearchLimit     int32
	SearchThreshold float64
}

func (l Limits) normalize() Limits {
	if l.FetchDefault <= 0 {
		l.FetchDefault = 10
	}
	if l.FetchMax <= 0 {
		l.FetchMax = 50
	}
	if l.SummaryDefault <= 0 {
		l.SummaryDefault = 30
	}
	if l.SummaryMax <= 0 {
		l.SummaryMax = 100
	}
	if l.SearchLimit <= 0 {
		l.SearchLimit = 10
	}
	if l.SearchThreshold <= 0 {
		l.SearchThreshold = 0.3
	}
	return l
}

// Deps carries everything the tool handlers need.
type Deps struct {
	Entries  EntryReader
	Embedder Embedder
	Logger   *slog.Logger
	Limits   Limits
}

// Register defines the agent's tools on g and returns them for wiring
// into generate calls.
func Register(g *genkit.Genkit, deps Deps) []ai.Tool {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Limits = deps.Limits.normalize()

	fetchEntries := genkit.DefineTool(g, NameFetchEntries,
		"Fetch the user's work entries in reverse chronological order, optionally filtered by category, project, status, priority or date range.",
		func(ctx *ai.ToolContext, in FetchEntriesInput) (Result, error) {
			return handleFetchEntries(ctx, deps, in), nil
		})

	fetchSummary := genkit.DefineTool(g, NameFetchSummary,
		"Fetch a compact summary of the user's recent work entries, suitable for broad questions like 'what have I been working on'.",
		func(ctx *ai.ToolContext, in FetchSummaryInput) (Result, error) {
			return handleFetchSummary(ctx, deps, in), nil
		})

	search := genkit.DefineTool(g, NameSearch,
		"Search the user's work entries by meaning. Use this when the user asks about a topic rather than a time range.",
		func(ctx *ai.ToolContext, in SearchEntriesInput) (Result, error) {
			return handleSearch(ctx, deps, in), nil
		})

	return []ai.Tool{fetchEntries, fetchSummary, search}
}

func handleFetchEntries(ctx context.Context, deps Deps, in FetchEntriesInput) Result {
	ownerID, ok := OwnerIDFromContext(ctx)
	if !ok {
		return fail(CodeUnauthorized, "no authenticated user in scope")
	}
	userID, err := uuid.Parse(ownerID)
	if err != nil {
		return fail(CodeUnauthorized, "invalid user scope")
	}

	f := entry.Filter{
		Category: in.Category,
		Status:   in.Status,
		Priority: in.Priority,
		Limit:    clamp(in.Limit, deps.Limits.FetchDefault, deps.Limits.FetchMax),
	}

	if in.Status != "" && in.Status != entry.StatusPending && in.Status != entry.StatusCompleted {
		return fail(CodeInvalidArgument, fmt.Sprintf("status must be %q or %q", entry.StatusPending, entry.StatusCompleted))
	}
	if in.Priority != "" {
		switch in.Priority {
		case entry.PriorityLow, entry.PriorityMedium, entry.PriorityHigh:
		default:
			return fail(CodeInvalidArgument, "priority must be low, medium or high")
		}
	}
	if in.ProjectID != "" {
		if _, err := uuid.Parse(in.ProjectID); err != nil {
			return fail(CodeInvalidArgument, "projectId must be a UUID")
		}
		f.ProjectID = in.ProjectID
	}
	if in.StartDate != "" {
		t, err := time.Parse(dateFormat, in.StartDate)
		if err != nil {
			return fail(CodeInvalidArgument, "startDate must be YYYY-MM-DD")
		}
		f.StartDate = t
	}
	if in.EndDate != "" {
		t, err := time.Parse(dateFormat, in.EndDate)
		if err != nil {
			return fail(CodeInvalidArgument, "endDate must be YYYY-MM-DD")
		}
		// Inclusive end of day.
		f.EndDate = t.Add(24*time.Hour - time.Nanosecond)
	}

	entries, err := deps.Entries.List(ctx, userID, f)
	if err != nil {
		deps.Logger.Error("fetch_entries failed", "error", err, "user_id", userID)
		return fail(CodeInternal, "could not load entries")
	}

	return succeed(map[string]any{"entries": entries, "count": len(entries)})
}

func handleFetchSummary(ctx context.Context, deps Deps, in FetchSummaryInput) Result {
	ownerID, okCtx := OwnerIDFromContext(ctx)
	if !okCtx {
		return fail(CodeUnauthorized, "no authenticated user in scope")
	}
	userID, err := uuid.Parse(ownerID)
	if err != nil {
		return fail(CodeUnauthorized, "invalid user scope")
	}

	f := entry.Filter{Limit: clamp(in.Limit, deps.Limits.SummaryDefault, deps.Limits.SummaryMax)}
	if in.StartDate != "" {
		t, err := time.Parse(dateFormat, in.StartDate)
		if err != nil {
			return fail(CodeInvalidArgument, "startDate must be YYYY-MM-DD")
		}
		f.StartDate = t
	}
	if in.EndDate != "" {
		t, err := time.Parse(dateFormat, in.EndDate)
		if err != nil {
			return fail(CodeInvalidArgument, "endDate must be YYYY-MM-DD")
		}
		f.EndDate = t.Add(24*time.Hour - time.Nanosecond)
	}

	summaries, err := deps.Entries.Summaries(ctx, userID, f)
	if err != nil {
		deps.Logger.Error("fetch_entry_summary failed", "error", err, "user_id", userID)
		return fail(CodeInternal, "could not load entry summaries")
	}

	return succeed(map[string]any{"entries": summaries, "count": len(summaries)})
}

func handleSearch(ctx context.Context, deps Deps, in SearchEntriesInput) Result {
	ownerID, okCtx := OwnerIDFromContext(ctx)
	if !okCtx {
		return fail(CodeUnauthorized, "no authenticated user in scope")
	}
	userID, err := uuid.Parse(ownerID)
	if err != nil {
		return fail(CodeUnauthorized, "invalid user scope")
	}
	if in.Query == "" {
		return fail(CodeInvalidArgument, "query is required")
	}

	limit := clamp(in.Limit, deps.Limits.SearchLimit, deps.Limits.SearchLimit)

	vec, err := deps.Embedder.Vector(ctx, in.Query)
	if err != nil {
		deps.Logger.Warn("query embedding failed, falling back to title search", "error", err)
	} else {
		matches, serr := deps.Entries.SemanticSearch(ctx, userID, vec, deps.Limits.SearchThreshold, limit)
		switch {
		case serr != nil:
			deps.Logger.Warn("semantic search failed, falling back to title search", "error", serr, "user_id", userID)
		case len(matches) > 0:
			return succeed(map[string]any{"entries": matches, "count": len(matches), "match": "semantic"})
		}
	}

	// At most one fallback pass: a plain title substring match.
	entries, terr := deps.Entries.TitleSearch(ctx, userID, in.Query, limit)
	if terr != nil {
		deps.Logger.Error("title search failed", "error", terr, "user_id", userID)
		return fail(CodeInternal, "search failed")
	}
	return succeed(map[string]any{"entries": entries, "count": len(entries), "match": "title"})
}

func clamp(v, def, max int32) int32 {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
