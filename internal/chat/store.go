package chat

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/planora-app/planora/internal/db"
)

type Store interface {
	// GetOrCreate inserts the conversation unless one already exists for its
	// (pair_key, context_id) and returns the canonical row either way. Two
	// simultaneous first-contact attempts converge on one record via the
	// unique index, not an application-level check.
	GetOrCreate(ctx context.Context, conv *Conversation) (*Conversation, error)
	Get(ctx context.Context, id string) (*Conversation, error)
	ListFor(ctx context.Context, userID string) ([]Conversation, error)
	InsertMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
}

type postgresStore struct{}

// NewStore returns the pgx-backed conversation store over the shared pool.
func NewStore() Store {
	return postgresStore{}
}

func (postgresStore) GetOrCreate(ctx context.Context, conv *Conversation) (*Conversation, error) {
	_, err := db.Conn.Exec(ctx, `
        INSERT INTO conversations (id, pair_key, context_id, client_id, peer_id, peer_role, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (pair_key, context_id) DO NOTHING`,
		conv.ID, conv.PairKey, conv.ContextID, conv.ClientID, conv.PeerID, conv.PeerRole, conv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	var out Conversation
	err = db.Conn.QueryRow(ctx, `
        SELECT id, pair_key, context_id, client_id, peer_id, peer_role, created_at
        FROM conversations WHERE pair_key = $1 AND context_id = $2`,
		conv.PairKey, conv.ContextID,
	).Scan(&out.ID, &out.PairKey, &out.ContextID, &out.ClientID, &out.PeerID, &out.PeerRole, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (postgresStore) Get(ctx context.Context, id string) (*Conversation, error) {
	var out Conversation
	err := db.Conn.QueryRow(ctx, `
        SELECT id, pair_key, context_id, client_id, peer_id, peer_role, created_at
        FROM conversations WHERE id = $1`, id,
	).Scan(&out.ID, &out.PairKey, &out.ContextID, &out.ClientID, &out.PeerID, &out.PeerRole, &out.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (postgresStore) ListFor(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := db.Conn.Query(ctx, `
        SELECT id, pair_key, context_id, client_id, peer_id, peer_role, created_at
        FROM conversations WHERE client_id = $1 OR peer_id = $1
        ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.PairKey, &c.ContextID, &c.ClientID, &c.PeerID, &c.PeerRole, &c.CreatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, nil
}

func (postgresStore) InsertMessage(ctx context.Context, m *Message) error {
	return db.Conn.QueryRow(ctx, `
        INSERT INTO messages (id, conversation_id, sender_id, body, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING seq`,
		m.ID, m.ConversationID, m.SenderID, m.Body, m.CreatedAt,
	).Scan(&m.Seq)
}

func (postgresStore) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := db.Conn.Query(ctx, `
        SELECT id, conversation_id, sender_id, body, seq, created_at, read_at
        FROM messages WHERE conversation_id = $1
        ORDER BY created_at ASC, seq ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.Seq, &m.CreatedAt, &m.ReadAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (postgresStore) MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	res, err := db.Conn.Exec(ctx, `
        UPDATE messages SET read_at = $1
        WHERE conversation_id = $2 AND sender_id <> $3 AND read_at IS NULL`,
		at, conversationID, readerID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func (postgresStore) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := db.Conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM messages m
        JOIN conversations c ON c.id = m.conversation_id
        WHERE (c.client_id = $1 OR c.peer_id = $1)
          AND m.sender_id <> $1
          AND m.read_at IS NULL`, userID,
	).Scan(&count)
	return count, err
}
