package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Conversation struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	IsActive  bool       `json:"is_active"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Duration  int64      `json:"duration"`
	CreatedAt time.Time  `json:"created_at"`
}

// Message is one transcript entry. Transcripts store the user's
// original text; enrichment context never reaches storage.
type Message struct {
	ConversationID string `json:"conversation_id" bson:"conversation_id"`
	UserID         string `json:"user_id" bson:"user_id"`
	Role           string `json:"role" bson:"role"`
	Content        string `json:"content" bson:"content"`
	Timestamp      int64  `json:"timestamp" bson:"timestamp"`
}

// TurnEvent is published to the analytics stream after each completed
// conversational turn.
type TurnEvent struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Model          string `json:"model"`
	Enriched       bool   `json:"enriched"`
	LatencyMillis  int64  `json:"latency_ms"`
	Timestamp      int64  `json:"timestamp"`
}
