package pgstore

import (
	"context"

	"github.com/microcosm-cc/bluemonday"

	"github.com/snarg/signalhub/internal/store"
)

// Sink implements store.PersistenceSink. Content is stripped of markup
// with bluemonday's strict policy before it touches the database — chat
// content sent over a WebSocket frame is untrusted input.
type Sink struct {
	db     *DB
	policy *bluemonday.Policy
}

func NewSink(db *DB) *Sink {
	return &Sink{db: db, policy: bluemonday.StrictPolicy()}
}

func (s *Sink) AppendDirect(ctx context.Context, senderID, targetID int64, content string) (store.ChatMessage, error) {
	clean := s.policy.Sanitize(content)
	var msg store.ChatMessage
	err := s.db.Pool.QueryRow(ctx,
		`INSERT INTO messages (sender_id, target_id, content) VALUES ($1, $2, $3)
		 RETURNING id, sender_id, target_id, content, sent_at`,
		senderID, targetID, clean,
	).Scan(&msg.ID, &msg.SenderID, &msg.TargetID, &msg.Content, &msg.SentAt)
	return msg, err
}

func (s *Sink) AppendGroup(ctx context.Context, senderID, groupID int64, content string) (store.ChatMessage, error) {
	clean := s.policy.Sanitize(content)
	var msg store.ChatMessage
	err := s.db.Pool.QueryRow(ctx,
		`INSERT INTO group_messages (group_id, sender_id, content) VALUES ($1, $2, $3)
		 RETURNING id, sender_id, group_id, content, sent_at`,
		groupID, senderID, clean,
	).Scan(&msg.ID, &msg.SenderID, &msg.GroupID, &msg.Content, &msg.SentAt)
	return msg, err
}

func (s *Sink) DirectHistory(ctx context.Context, userA, userB int64, limit int) ([]store.ChatMessage, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT id, sender_id, target_id, content, sent_at FROM messages
		 WHERE (sender_id = $1 AND target_id = $2) OR (sender_id = $2 AND target_id = $1)
		 ORDER BY sent_at DESC LIMIT $3`,
		userA, userB, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ChatMessage
	for rows.Next() {
		var m store.ChatMessage
		if err := rows.Scan(&m.ID, &m.SenderID, &m.TargetID, &m.Content, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Sink) GroupHistory(ctx context.Context, groupID int64, limit int) ([]store.ChatMessage, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT id, sender_id, group_id, content, sent_at FROM group_messages
		 WHERE group_id = $1 ORDER BY sent_at DESC LIMIT $2`,
		groupID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ChatMessage
	for rows.Next() {
		var m store.ChatMessage
		if err := rows.Scan(&m.ID, &m.SenderID, &m.GroupID, &m.Content, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
