// Package entry persists work-log entries in PostgreSQL.
//
// Every query is scoped by the owning user's id. The package exposes
// row-level CRUD, filtered listing, a reduced summary projection for the
// chat agent's overview tool, pgvector similarity search, and the per-day
// counts feeding the contribution grid.
package entry

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Priority levels for an entry.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Status values for an entry.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// ErrNotFound indicates the requested entry does not exist or belongs to
// another user.
var ErrNotFound = errors.New("entry not found")

// Entry is a single work-log record.
type Entry struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Category    *string    `json:"category,omitempty"`
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
	TimeSpent   *int32     `json:"time_spent,omitempty"` // minutes
	Priority    *string    `json:"priority,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Summary is the reduced projection returned for broad overview queries,
// where full descriptions would only inflate the payload.
type Summary struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Category  *string    `json:"category,omitempty"`
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
	TimeSpent *int32     `json:"time_spent,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Match is a semantic search hit: the entry plus its cosine similarity
// to the query.
type Match struct {
	Entry
	Similarity float64 `json:"similarity"`
}

// Filter narrows a List or Summaries query. Zero-value fields are
// ignored; set fields are AND-ed together. StartDate/EndDate bound
// created_at inclusively.
type Filter struct {
	Category   string
	ProjectID  string
	Status     string
	Priority   string
	StartDate  time.Time
	EndDate    time.Time
	TitleQuery string // case-insensitive substring on title
	Limit      int32  // 0 = no limit
}

// CreateParams carries the fields for a new entry. Embedding is optional;
// nil stores a NULL vector and the entry is simply invisible to semantic
// search.
type CreateParams struct {
	Title       string
	Description *string
	Category    *string
	ProjectID   *uuid.UUID
	TimeSpent   *int32
	Priority    *string
	Status      string
	Embedding   []float32
}

// UpdateParams carries a partial update; nil fields are left untouched.
type UpdateParams struct {
	Title       *string
	Description *string
	Category    *string
	ProjectID   *uuid.UUID
	TimeSpent   *int32
	Priority    *string
	Status      *string
}
