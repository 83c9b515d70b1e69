package store

import (
	"context"
	"fmt"
	"time"
)

// MessageRecord is one audit row. Body text is never stored — only its
// length — so the log is useful for debugging volume and routing without
// retaining message content.
type MessageRecord struct {
	TraceID    string
	Sender     string
	Direction  string // "inbound" or "outbound"
	Intent     string
	Confidence float64
	BodyLen    int
	Segments   int
	CreatedAt  time.Time
}

// LogMessage appends an audit row. Failures here must never fail the
// message, so the single caller logs and continues on error.
func (s *Store) LogMessage(ctx context.Context, rec *MessageRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO message_log (trace_id, sender, direction, intent, confidence, body_len, segments, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TraceID, rec.Sender, rec.Direction, rec.Intent, rec.Confidence,
		rec.BodyLen, rec.Segments, time.Now())
	if err != nil {
		return fmt.Errorf("failed to log message: %w", err)
	}
	return nil
}

// RecentMessages returns the sender's latest audit rows, newest first.
func (s *Store) RecentMessages(ctx context.Context, sender string, limit int) ([]*MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trace_id, sender, direction, intent, confidence, body_len, segments, created_at
		FROM message_log WHERE sender = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, sender, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query message log: %w", err)
	}
	defer rows.Close()

	var recs []*MessageRecord
	for rows.Next() {
		rec := &MessageRecord{}
		err := rows.Scan(&rec.TraceID, &rec.Sender, &rec.Direction, &rec.Intent,
			&rec.Confidence, &rec.BodyLen, &rec.Segments, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message log row: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// PruneMessageLog deletes audit rows older than retention and returns how
// many were removed.
func (s *Store) PruneMessageLog(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM message_log WHERE created_at < ?", time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to prune message log: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
