package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/franckalain/wellness/internal/models"
)

// AppendMessage adds a line to a conversation transcript.
func (s *SQLiteDB) AppendMessage(ctx context.Context, m *models.ChatMessage) error {
	newID(&m.ID)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	grounding, err := json.Marshal(m.Grounding)
	if err != nil {
		return err
	}
	if m.Grounding == nil {
		grounding = []byte("[]")
	}

	query := `
		INSERT INTO chat_messages (id, user_id, conversation_id, role, text, grounding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		m.ID, m.UserID, m.ConversationID, m.Role, m.Text, string(grounding), m.CreatedAt.UnixMilli(),
	)
	return err
}

// ListMessages returns the last limit messages of a conversation, oldest first.
func (s *SQLiteDB) ListMessages(ctx context.Context, userID, conversationID string, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, user_id, conversation_id, role, text, grounding, created_at FROM (
			SELECT *, rowid AS rid FROM chat_messages
			WHERE user_id = ? AND conversation_id = ?
			ORDER BY created_at DESC, rid DESC
			LIMIT ?
		) ORDER BY created_at ASC, rid ASC
	`

	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := s.db.QueryContext(ctx, query, userID, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var grounding string
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.UserID, &m.ConversationID, &m.Role, &m.Text, &grounding, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(grounding), &m.Grounding); err != nil {
			return nil, fmt.Errorf("error decoding grounding: %w", err)
		}
		if len(m.Grounding) == 0 {
			m.Grounding = nil
		}
		m.CreatedAt = time.UnixMilli(createdAt)
		results = append(results, &m)
	}
	return results, rows.Err()
}
