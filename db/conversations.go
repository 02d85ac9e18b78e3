package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Abhijeet14d/KrishiBandhu/models"
)

var ErrConversationNotFound = fmt.Errorf("conversation not found")

func CreateConversation(userID string) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (user_id)
		VALUES ($1)
		RETURNING id, user_id, title, is_active, started_at, created_at
	`
	item := &models.Conversation{}
	err := DB.QueryRow(query, userID).Scan(
		&item.ID,
		&item.UserID,
		&item.Title,
		&item.IsActive,
		&item.StartedAt,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating conversation: %v", err)
	}
	return item, nil
}

// GetConversation fetches a conversation scoped to its owner.
func GetConversation(id, userID string) (*models.Conversation, error) {
	query := `
		SELECT id, user_id, title, is_active, started_at, ended_at, duration, created_at
		FROM conversations
		WHERE id = $1 AND user_id = $2
	`
	item := &models.Conversation{}
	var endedAt sql.NullTime
	err := DB.QueryRow(query, id, userID).Scan(
		&item.ID,
		&item.UserID,
		&item.Title,
		&item.IsActive,
		&item.StartedAt,
		&endedAt,
		&item.Duration,
		&item.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("error getting conversation %s: %v", id, err)
	}
	if endedAt.Valid {
		item.EndedAt = &endedAt.Time
	}
	return item, nil
}

func GetConversationsByUserID(userID string) ([]*models.Conversation, error) {
	query := `
		SELECT id, user_id, title, is_active, started_at, ended_at, duration, created_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	items := []*models.Conversation{}

	rows, err := DB.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching conversations for user %s: %v", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		item := &models.Conversation{}
		var endedAt sql.NullTime
		err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.Title,
			&item.IsActive,
			&item.StartedAt,
			&endedAt,
			&item.Duration,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning conversation: %v", err)
		}
		if endedAt.Valid {
			item.EndedAt = &endedAt.Time
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func UpdateConversationTitle(id, title string) error {
	_, err := DB.Exec(`UPDATE conversations SET title = $1 WHERE id = $2`, title, id)
	if err != nil {
		return fmt.Errorf("error updating title for conversation %s: %v", id, err)
	}
	return nil
}

// EndConversation marks the conversation inactive and records its
// duration in seconds.
func EndConversation(id string, endedAt time.Time) (int64, error) {
	query := `
		UPDATE conversations
		SET is_active = FALSE, ended_at = $1,
		    duration = EXTRACT(EPOCH FROM ($1::timestamptz - started_at))::bigint
		WHERE id = $2
		RETURNING duration
	`
	var duration int64
	err := DB.QueryRow(query, endedAt, id).Scan(&duration)
	if err != nil {
		return 0, fmt.Errorf("error ending conversation %s: %v", id, err)
	}
	return duration, nil
}

func DeleteConversation(id string) error {
	_, err := DB.Exec(`DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting conversation %s: %v", id, err)
	}
	return nil
}
