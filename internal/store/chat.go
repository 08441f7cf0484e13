package store

import "context"

// SaveChatMessage durably stores a relayed room message and returns its
// assigned identifier. This is the persistence call the collaboration
// hub awaits before relaying a message to a room.
func (p *Postgres) SaveChatMessage(ctx context.Context, problemID, senderID, senderName, content string) (string, error) {
	var id string
	err := p.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (problem_id, sender_id, sender_name, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, problemID, senderID, senderName, content).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListChatMessages returns a problem's chat history, oldest first.
func (p *Postgres) ListChatMessages(ctx context.Context, problemID string, limit int) ([]ChatMessage, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, problem_id, sender_id, sender_name, content, created_at
		FROM chat_messages
		WHERE problem_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, problemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ProblemID, &m.SenderID, &m.SenderName, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
