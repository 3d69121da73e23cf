package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message roles. Only these two are persisted; system prompts are
// injected per turn and never stored.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation as stored.
type Message struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// IncomingMessage is a turn as supplied by the client. Role must be
// RoleUser or RoleAssistant.
type IncomingMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}
