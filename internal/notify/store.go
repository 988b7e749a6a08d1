package notify

import (
	"context"
	"time"

	"github.com/planora-app/planora/internal/db"
)

type Store interface {
	Insert(ctx context.Context, n *Notification) error
	ListFor(ctx context.Context, recipientID string, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, id, recipientID string, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
}

type postgresStore struct{}

// NewStore returns the pgx-backed notification store over the shared pool.
func NewStore() Store {
	return postgresStore{}
}

func (postgresStore) Insert(ctx context.Context, n *Notification) error {
	_, err := db.Conn.Exec(ctx, `
        INSERT INTO notifications (id, user_id, type, title, body, reference, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.RecipientID, n.Type, n.Title, n.Body, n.Reference, n.CreatedAt,
	)
	return err
}

func (postgresStore) ListFor(ctx context.Context, recipientID string, unreadOnly bool) ([]Notification, error) {
	query := `
        SELECT id, user_id, type, title, body, reference, created_at, read_at
        FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.Conn.Query(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Body, &n.Reference, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, nil
}

func (postgresStore) MarkRead(ctx context.Context, id, recipientID string, at time.Time) (bool, error) {
	res, err := db.Conn.Exec(ctx, `
        UPDATE notifications SET read_at = $1
        WHERE id = $2 AND user_id = $3 AND read_at IS NULL`,
		at, id, recipientID,
	)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (postgresStore) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	res, err := db.Conn.Exec(ctx, `
        UPDATE notifications SET read_at = $1
        WHERE user_id = $2 AND read_at IS NULL`,
		at, recipientID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func (postgresStore) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := db.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`,
		recipientID,
	).Scan(&count)
	return count, err
}
