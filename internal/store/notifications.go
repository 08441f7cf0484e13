package store

import "context"

// CreateNotification stores a notification for later listing; realtime
// delivery to connected recipients happens separately through the hub.
func (p *Postgres) CreateNotification(ctx context.Context, n Notification) (string, error) {
	var id string
	err := p.pool.QueryRow(ctx, `
		INSERT INTO notifications (recipient_id, sender_id, type, message, problem_id, related_item_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, n.RecipientID, n.SenderID, n.Type, n.Message, n.ProblemID, n.RelatedItemID).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListNotifications returns a page of the recipient's notifications,
// newest first, plus total and unread counts.
func (p *Postgres) ListNotifications(ctx context.Context, recipientID string, limit, offset int) ([]Notification, int, int, error) {
	var total, unread int
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT is_read)
		FROM notifications WHERE recipient_id = $1
	`, recipientID).Scan(&total, &unread)
	if err != nil {
		return nil, 0, 0, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, recipient_id, sender_id, type, message, problem_id, related_item_id, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, recipientID, limit, offset)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.SenderID, &n.Type, &n.Message, &n.ProblemID, &n.RelatedItemID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, 0, err
		}
		out = append(out, n)
	}
	return out, total, unread, rows.Err()
}

// MarkNotificationRead flags one notification read; the recipient check
// keeps users out of each other's notifications.
func (p *Postgres) MarkNotificationRead(ctx context.Context, id, recipientID string) error {
	ct, err := p.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND recipient_id = $2
	`, id, recipientID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead flags every unread notification for the recipient.
func (p *Postgres) MarkAllNotificationsRead(ctx context.Context, recipientID string) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE recipient_id = $1 AND NOT is_read
	`, recipientID)
	return err
}

// DeleteNotification removes one of the recipient's notifications.
func (p *Postgres) DeleteNotification(ctx context.Context, id, recipientID string) error {
	ct, err := p.pool.Exec(ctx, `
		DELETE FROM notifications WHERE id = $1 AND recipient_id = $2
	`, id, recipientID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
