// Package project persists the user's projects, the grouping unit for
// work-log entries.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the project does not exist or belongs to another user.
var ErrNotFound = errors.New("project not found")

// Project groups related work-log entries.
type Project struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Params carries the writable project fields.
type Params struct {
	Title       string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
}

const projectColumns = "id, user_id, title, description, start_date, end_date, created_at"

// Store persists projects in PostgreSQL. Safe for concurrent use.
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

// List returns all projects owned by userID, newest first.
func (s *Store) List(ctx context.Context, userID uuid.UUID) ([]Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = $1 ORDER BY created_at DESC`,
		pgUUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// Create inserts a new project and returns the stored row.
func (s *Store) Create(ctx context.Context, userID uuid.UUID, p Params) (*Project, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO projects (user_id, title, description, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+projectColumns,
		pgUUID(userID), p.Title, p.Description, p.StartDate, p.EndDate,
	)

	proj, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	s.logger.Debug("created project", "id", proj.ID, "user_id", userID)
	return proj, nil
}

// Update replaces the writable fields of a project.
func (s *Store) Update(ctx context.Context, userID, id uuid.UUID, p Params) (*Project, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE projects
		SET title = $3, description = $4, start_date = $5, end_date = $6
		WHERE id = $1 AND user_id = $2
		RETURNING `+projectColumns,
		pgUUID(id), pgUUID(userID), p.Title, p.Description, p.StartDate, p.EndDate,
	)

	proj, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating project %s: %w", id, err)
	}
	return proj, nil
}

// Delete removes a project. Entries referencing it keep existing with a
// NULL project_id (ON DELETE SET NULL).
func (s *Store) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM projects WHERE id = $1 AND user_id = $2`,
		pgUUID(id), pgUUID(userID),
	)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProject(row pgx.Row) (*Project, error) {
	var (
		p          Project
		id, userID pgtype.UUID
		start, end pgtype.Date
	)
	if err := row.Scan(&id, &userID, &p.Title, &p.Description, &start, &end, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.ID = uuid.UUID(id.Bytes)
	p.UserID = uuid.UUID(userID.Bytes)
	if start.Valid {
		t := start.Time
		p.StartDate = &t
	}
	if end.Valid {
		t := end.Time
		p.EndDate = &t
	}
	return &p, nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
