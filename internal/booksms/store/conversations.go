package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"booksms/internal/booksms/convo"
)

// Conversation rows carry the serialized context as a JSON blob plus a
// last_interaction column the pruner can query without deserializing.

// LoadConversation returns the stored conversation for sender, or nil when
// none exists. Implements convo.Durable.
func (s *Store) LoadConversation(ctx context.Context, sender string) (*convo.Context, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM conversations WHERE sender = ?", sender).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	var c convo.Context
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		// A corrupt row is unrecoverable state, not an error worth failing
		// the message over. Drop it and start the conversation fresh.
		_ = s.DeleteConversation(ctx, sender)
		return nil, nil
	}
	return &c, nil
}

// SaveConversation upserts the conversation. Implements convo.Durable.
func (s *Store) SaveConversation(ctx context.Context, c *convo.Context) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (sender, data, last_interaction) VALUES (?, ?, ?)
		ON CONFLICT(sender) DO UPDATE SET data = excluded.data, last_interaction = excluded.last_interaction`,
		c.Sender, string(data), c.LastInteraction)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// DeleteConversation removes the sender's conversation row. Implements
// convo.Durable.
func (s *Store) DeleteConversation(ctx context.Context, sender string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE sender = ?", sender)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// PruneConversations deletes conversations idle longer than ttl and returns
// how many were removed. The app calls this on a timer; reads are already
// expiry-checked, so this only reclaims space.
func (s *Store) PruneConversations(ctx context.Context, ttl time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM conversations WHERE last_interaction < ?", time.Now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to prune conversations: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
