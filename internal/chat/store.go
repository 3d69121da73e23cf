package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists conversation messages in PostgreSQL. Every query is
// scoped by user ID; a session ID alone never grants access to another
// user's history.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a message store backed by the given pool.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Append stores a single message and returns it with its generated ID
// and timestamp.
func (s *Store) Append(ctx context.Context, userID uuid.UUID, sessionID, role, content string) (*Message, error) {
	const query = `
		INSERT INTO chat_messages (user_id, session_id, role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, session_id, role, content, created_at`

	row := s.pool.QueryRow(ctx, query,
		pgtype.UUID{Bytes: userID, Valid: true}, sessionID, role, content)

	var (
		id, uid   pgtype.UUID
		msg       Message
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &uid, &msg.SessionID, &msg.Role, &msg.Content, &createdAt); err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}

	msg.ID = uuid.UUID(id.Bytes)
	msg.UserID = uuid.UUID(uid.Bytes)
	msg.CreatedAt = createdAt.Time
	return &msg, nil
}

// History returns all messages for a user's session, oldest first.
func (s *Store) History(ctx context.Context, userID uuid.UUID, sessionID string) ([]Message, error) {
	const query = `
		SELECT id, user_id, session_id, role, content, created_at
		FROM chat_messages
		WHERE user_id = $1 AND session_id = $2
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query,
		pgtype.UUID{Bytes: userID, Valid: true}, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var (
			id, uid   pgtype.UUID
			msg       Message
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &uid, &msg.SessionID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.ID = uuid.UUID(id.Bytes)
		msg.UserID = uuid.UUID(uid.Bytes)
		msg.CreatedAt = createdAt.Time
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return messages, nil
}
