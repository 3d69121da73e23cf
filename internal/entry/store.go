package entry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// entryColumns is the full projection, minus the embedding vector which
// is never returned to callers.
const entryColumns = "id, user_id, title, description, category, project_id, time_spent, priority, status, created_at, updated_at"

// Store persists entries in PostgreSQL. Safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Create inserts a new entry owned by userID and returns the stored row.
func (s *Store) Create(ctx context.Context, userID uuid.UUID, p CreateParams) (*Entry, error) {
	status := p.Status
	if status == "" {
		status = StatusPending
	}

	var embedding *pgvector.Vector
	if len(p.Embedding) > 0 {
		v := pgvector.NewVector(p.Embedding)
		embedding = &v
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO entries (user_id, title, description, category, project_id, time_spent, priority, status, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+entryColumns,
		pgUUID(userID), p.Title, p.Description, p.Category, pgUUIDPtr(p.ProjectID),
		p.TimeSpent, p.Priority, status, embedding,
	)

	e, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("creating entry: %w", err)
	}

	s.logger.Debug("created entry", "id", e.ID, "user_id", userID)
	return e, nil
}

// Get returns a single entry. ErrNotFound covers both a missing row and a
// row owned by someone else; callers cannot tell the difference.
func (s *Store) Get(ctx context.Context, userID, id uuid.UUID) (*Entry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = $1 AND user_id = $2`,
		pgUUID(id), pgUUID(userID),
	)

	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting entry %s: %w", id, err)
	}
	return e, nil
}

// List returns the caller's entries matching the filter, newest first.
func (s *Store) List(ctx context.Context, userID uuid.UUID, f Filter) ([]Entry, error) {
	query, args := buildListQuery(entryColumns, userID, f)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return entries, nil
}

// Summaries returns the reduced projection of the caller's entries,
// newest first.
func (s *Store) Summaries(ctx context.Context, userID uuid.UUID, f Filter) ([]Summary, error) {
	query, args := buildListQuery("id, title, category, project_id, time_spent, created_at", userID, f)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entry summaries: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			id, projectID pgtype.UUID
			sum           Summary
		)
		if err := rows.Scan(&id, &sum.Title, &sum.Category, &projectID, &sum.TimeSpent, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning entry summary: %w", err)
		}
		sum.ID = uuid.UUID(id.Bytes)
		sum.ProjectID = fromPgUUID(projectID)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing entry summaries: %w", err)
	}
	return summaries, nil
}

// Update applies a partial update and returns the new row.
func (s *Store) Update(ctx context.Context, userID, id uuid.UUID, p UpdateParams) (*Entry, error) {
	sets := []string{"updated_at = now()"}
	args := []any{pgUUID(id), pgUUID(userID)}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.ProjectID != nil {
		add("project_id", pgUUID(*p.ProjectID))
	}
	if p.TimeSpent != nil {
		add("time_spent", *p.TimeSpent)
	}
	if p.Priority != nil {
		add("priority", *p.Priority)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}

	query := fmt.Sprintf(
		`UPDATE entries SET %s WHERE id = $1 AND user_id = $2 RETURNING %s`,
		strings.Join(sets, ", "), entryColumns,
	)

	e, err := scanEntry(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating entry %s: %w", id, err)
	}
	return e, nil
}

// Delete removes an entry. Deleting a row that does not exist (or is not
// owned by the caller) returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM entries WHERE id = $1 AND user_id = $2`,
		pgUUID(id), pgUUID(userID),
	)
	if err != nil {
		return fmt.Errorf("deleting entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SemanticSearch returns the caller's entries whose embedding cosine
// similarity to queryVec exceeds threshold, best match first.
func (s *Store) SemanticSearch(ctx context.Context, userID uuid.UUID, queryVec []float32, threshold float64, limit int32) ([]Match, error) {
	vec := pgvector.NewVector(queryVec)

	rows, err := s.pool.Query(ctx, `
		SELECT `+entryColumns+`, 1 - (embedding <=> $2) AS similarity
		FROM entries
		WHERE user_id = $1 AND embedding IS NOT NULL AND 1 - (embedding <=> $2) > $3
		ORDER BY embedding <=> $2
		LIMIT $4`,
		pgUUID(userID), vec, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := scanEntryInto(rows, &m.Entry, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	return matches, nil
}

// TitleSearch is the keyword fallback when the semantic path is
// unavailable: a case-insensitive substring match on title.
func (s *Store) TitleSearch(ctx context.Context, userID uuid.UUID, query string, limit int32) ([]Entry, error) {
	return s.List(ctx, userID, Filter{TitleQuery: query, Limit: limit})
}

// DailyCounts groups the caller's entries by UTC calendar day.
func (s *Store) DailyCounts(ctx context.Context, userID uuid.UUID) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, count(*)
		FROM entries
		WHERE user_id = $1
		GROUP BY 1`,
		pgUUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("counting daily entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			day   string
			count int
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scanning daily count: %w", err)
		}
		counts[day] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting daily entries: %w", err)
	}
	return counts, nil
}

// buildListQuery assembles the filtered SELECT shared by List and
// Summaries. User scoping is always the first predicate and is never
// derived from the filter.
func buildListQuery(columns string, userID uuid.UUID, f Filter) (string, []any) {
	var sb strings.Builder
	args := []any{pgUUID(userID)}

	sb.WriteString("SELECT ")
	sb.WriteString(columns)
	sb.WriteString(" FROM entries WHERE user_id = $1")

	add := func(clause string, value any) {
		args = append(args, value)
		fmt.Fprintf(&sb, " AND "+clause, len(args))
	}

	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.ProjectID != "" {
		add("project_id = $%d", f.ProjectID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Priority != "" {
		add("priority = $%d", f.Priority)
	}
	if !f.StartDate.IsZero() {
		add("created_at >= $%d", f.StartDate)
	}
	if !f.EndDate.IsZero() {
		add("created_at <= $%d", f.EndDate)
	}
	if f.TitleQuery != "" {
		add("title ILIKE '%%' || $%d || '%%'", f.TitleQuery)
	}

	sb.WriteString(" ORDER BY created_at DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	return sb.String(), args
}

// scanEntry scans one full entry row.
func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	if err := scanEntryInto(row, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// scanEntryInto scans the entryColumns projection into e, followed by
// any extra destinations (e.g. a similarity score).
func scanEntryInto(row pgx.Row, e *Entry, extra ...any) error {
	var (
		id, userID, projectID pgtype.UUID
		createdAt, updatedAt  time.Time
	)
	dests := []any{
		&id, &userID, &e.Title, &e.Description, &e.Category, &projectID,
		&e.TimeSpent, &e.Priority, &e.Status, &createdAt, &updatedAt,
	}
	dests = append(dests, extra...)

	if err := row.Scan(dests...); err != nil {
		return err
	}

	e.ID = uuid.UUID(id.Bytes)
	e.UserID = uuid.UUID(userID.Bytes)
	e.ProjectID = fromPgUUID(projectID)
	e.CreatedAt = createdAt
	e.UpdatedAt = updatedAt
	return nil
}

// pgUUID converts a google/uuid UUID to pgtype for query parameters.
func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// pgUUIDPtr converts an optional UUID; nil maps to SQL NULL.
func pgUUIDPtr(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgUUID(*id)
}

// fromPgUUID converts a nullable pgtype UUID back to an optional UUID.
func fromPgUUID(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := uuid.UUID(id.Bytes)
	return &u
}
