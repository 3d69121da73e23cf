package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promotesh/worklog/internal/entry"
	"github.com/promotesh/worklog/internal/log"
)

// fakeEntries records calls and serves canned results.
type fakeEntries struct {
	listFilter   entry.Filter
	listUser     uuid.UUID
	listResult   []entry.Entry
	listErr      error
	summaryUser  uuid.UUID
	summaryLimit int32
	matches      []entry.Match
	semanticErr  error
	titleQuery   string
	titleResult  []entry.Entry
	titleErr     error
	titleCalls   int
}

func (f *fakeEntries) List(_ context.Context, userID uuid.UUID, filter entry.Filter) ([]entry.Entry, error) {
	f.listUser = userID
	f.listFilter = filter
	return f.listResult, f.listErr
}

func (f *fakeEntries) Summaries(_ context.Context, userID uuid.UUID, filter entry.Filter) ([]entry.Summary, error) {
	f.summaryUser = userID
	f.summaryLimit = filter.Limit
	return nil, nil
}

func (f *fakeEntries) SemanticSearch(_ context.Context, _ uuid.UUID, _ []float32, _ float64, _ int32) ([]entry.Match, error) {
	return f.matches, f.semanticErr
}

func (f *fakeEntries) TitleSearch(_ context.Context, _ uuid.UUID, query string, _ int32) ([]entry.Entry, error) {
	f.titleCalls++
	f.titleQuery = query
	return f.titleResult, f.titleErr
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Vector(context.Context, string) ([]float32, error) {
	return f.vec, f.err
}

func testDeps(entries *fakeEntries, emb *fakeEmbedder) Deps {
	return Deps{
		Entries:  entries,
		Embedder: emb,
		Logger:   log.NewNop(),
		Limits:   Limits{}.normalize(),
	}
}

func scopedCtx(userID uuid.UUID) context.Context {
	return ContextWithOwnerID(context.Background(), userID.String())
}

func TestFetchEntriesScopesToContextOwner(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	fake := &fakeEntries{listResult: []entry.Entry{{ID: uuid.New(), Title: "done"}}}
	deps := testDeps(fake, &fakeEmbedder{})

	res := handleFetchEntries(scopedCtx(userID), deps, FetchEntriesInput{})
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, userID, fake.listUser)
}

func TestFetchEntriesWithoutScopeFails(t *testing.T) {
	t.Parallel()

	deps := testDeps(&fakeEntries{}, &fakeEmbedder{})
	res := handleFetchEntries(context.Background(), deps, FetchEntriesInput{})
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, CodeUnauthorized, res.Error.Code)
}

func TestFetchEntriesValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   FetchEntriesInput
	}{
		{name: "bad status", in: FetchEntriesInput{Status: "done"}},
		{name: "bad priority", in: FetchEntriesInput{Priority: "urgent"}},
		{name: "bad project id", in: FetchEntriesInput{ProjectID: "not-a-uuid"}},
		{name: "bad start date", in: FetchEntriesInput{StartDate: "yesterday"}},
		{name: "bad end date", in: FetchEntriesInput{EndDate: "2026/01/01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			deps := testDeps(&fakeEntries{}, &fakeEmbedder{})
			res := handleFetchEntries(scopedCtx(uuid.New()), deps, tt.in)
			require.Equal(t, StatusError, res.Status)
			require.NotNil(t, res.Error)
			assert.Equal(t, CodeInvalidArgument, res.Error.Code)
		})
	}
}

func TestFetchEntriesFilterMapping(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()
	fake := &fakeEntries{}
	deps := testDeps(fake, &fakeEmbedder{})

	res := handleFetchEntries(scopedCtx(uuid.New()), deps, FetchEntriesInput{
		Category:  "development",
		ProjectID: projectID.String(),
		Status:    entry.StatusCompleted,
		Priority:  entry.PriorityHigh,
		StartDate: "2026-08-01",
		EndDate:   "2026-08-15",
		Limit:     5,
	})
	require.Equal(t, StatusOK, res.Status)

	f := fake.listFilter
	assert.Equal(t, "development", f.Category)
	assert.Equal(t, projectID.String(), f.ProjectID)
	assert.Equal(t, entry.StatusCompleted, f.Status)
	assert.Equal(t, entry.PriorityHigh, f.Priority)
	assert.Equal(t, int32(5), f.Limit)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), f.StartDate)
	// End date is inclusive.
	assert.True(t, f.EndDate.After(time.Date(2026, 8, 15, 23, 59, 59, 0, time.UTC)))
}

func TestFetchEntriesLimitClamped(t *testing.T) {
	t.Parallel()

	fake := &fakeEntries{}
	deps := testDeps(fake, &fakeEmbedder{})

	res := handleFetchEntries(scopedCtx(uuid.New()), deps, FetchEntriesInput{Limit: 10_000})
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, deps.Limits.FetchMax, fake.listFilter.Limit)

	res = handleFetchEntries(scopedCtx(uuid.New()), deps, FetchEntriesInput{})
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, deps.Limits.FetchDefault, fake.listFilter.Limit)
}

func TestFetchEntriesStoreFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeEntries{listErr: errors.New("connection refused")}
	deps := testDeps(fake, &fakeEmbedder{})

	res := handleFetchEntries(scopedCtx(uuid.New()), deps, FetchEntriesInput{})
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, CodeInternal, res.Error.Code)
}

func TestFetchSummaryLimits(t *testing.T) {
	t.Parallel()

	fake := &fakeEntries{}
	deps := testDeps(fake, &fakeEmbedder{})

	res := handleFetchSummary(scopedCtx(uuid.New()), deps, FetchSummaryInput{})
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, deps.Limits.SummaryDefault, fake.summaryLimit)

	res = handleFetchSummary(scopedCtx(uuid.New()), deps, FetchSummaryInput{Limit: 9999})
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, deps.Limits.SummaryMax, fake.summaryLimit)
}

func TestFetchSummaryDateValidation(t *testing.T) {
	t.Parallel()

	deps := testDeps(&fakeEntries{}, &fakeEmbedder{})
	res := handleFetchSummary(scopedCtx(uuid.New()), deps, FetchSummaryInput{StartDate: "last tuesday"})
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, CodeInvalidArgument, res.Error.Code)
}

func TestSearchSemanticHit(t *testing.T) {
	t.Parallel()

	fake := &fakeEntries{matches: []entry.Match{{Entry: entry.Entry{Title: "docker work"}, Similarity: 0.82}}}
	deps := testDeps(fake, &fakeEmbedder{vec: []float32{0.1, 0.2}})

	res := handleSearch(scopedCtx(uuid.New()), deps, SearchEntriesInput{Query: "container troubleshooting"})
	require.Equal(t, StatusOK, res.Status)

	data := res.Data.(map[string]any)
	assert.Equal(t, "semantic", data["match"])
	assert.Equal(t, 0, fake.titleCalls)
}

func TestSearchFallsBackToTitleOnce(t *testing.T) {
	t.Parallel()

	t.Run("empty semantic result", func(t *testing.T) {
		t.Parallel()
		fake := &fakeEntries{titleResult: []entry.Entry{{Title: "docker fix"}}}
		deps := testDeps(fake, &fakeEmbedder{vec: []float32{0.1}})

		res := handleSearch(scopedCtx(uuid.New()), deps, SearchEntriesInput{Query: "docker"})
		require.Equal(t, StatusOK, res.Status)
		data := res.Data.(map[string]any)
		assert.Equal(t, "title", data["match"])
		assert.Equal(t, 1, fake.titleCalls)
		assert.Equal(t, "docker", fake.titleQuery)
	})

	t.Run("embedder failure", func(t *testing.T) {
		t.Parallel()
		fake := &fakeEntries{}
		deps := testDeps(fake, &fakeEmbedder{err: errors.New("quota exceeded")})

		res := handleSearch(scopedCtx(uuid.New()), deps, SearchEntriesInput{Query: "docker"})
		require.Equal(t, StatusOK, res.Status)
		data := res.Data.(map[string]any)
		assert.Equal(t, "title", data["match"])
		assert.Equal(t, 1, fake.titleCalls)
	})
}

func TestSearchRequiresQuery(t *testing.T) {
	t.Parallel()

	deps := testDeps(&fakeEntries{}, &fakeEmbedder{})
	res := handleSearch(scopedCtx(uuid.New()), deps, SearchEntriesInput{})
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, CodeInvalidArgument, res.Error.Code)
}

func TestSearchSemanticStoreFailureFallsBack(t *testing.T) {
	t.Parallel()

	fake := &fakeEntries{
		semanticErr: errors.New("index offline"),
		titleResult: []entry.Entry{{Title: "docker fix"}},
	}
	deps := testDeps(fake, &fakeEmbedder{vec: []float32{0.3}})

	res := handleSearch(scopedCtx(uuid.New()), deps, SearchEntriesInput{Query: "docker"})
	require.Equal(t, StatusOK, res.Status)
	data := res.Data.(map[string]any)
	assert.Equal(t, "title", data["match"])
	assert.Equal(t, 1, fake.titleCalls)
}

func TestSearchFailsWhenBothPathsFail(t *testing.T) {
	t.Parallel()

	fake := &fakeEntries{
		semanticErr: errors.New("index offline"),
		titleErr:    errors.New("connection refused"),
	}
	deps := testDeps(fake, &fakeEmbedder{vec: []float32{0.3}})

	res := handleSearch(scopedCtx(uuid.New()), deps, SearchEntriesInput{Query: "anything"})
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, CodeInternal, res.Error.Code)
	assert.Equal(t, 1, fake.titleCalls)
}

func TestOwnerIDContextRoundTrip(t *testing.T) {
	t.Parallel()

	_, ok := OwnerIDFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithOwnerID(context.Background(), "abc")
	id, ok := OwnerIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = OwnerIDFromContext(ContextWithOwnerID(context.Background(), ""))
	assert.False(t, ok)
}
