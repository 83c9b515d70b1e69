package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNoGoal is returned when no reading goal is set for the year.
var ErrNoGoal = errors.New("no reading goal set")

// SetGoal records the yearly book target, replacing any previous one.
func (s *Store) SetGoal(ctx context.Context, year, target int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reading_goals (year, target) VALUES (?, ?)
		ON CONFLICT(year) DO UPDATE SET target = excluded.target, set_at = CURRENT_TIMESTAMP`,
		year, target)
	if err != nil {
		return fmt.Errorf("failed to set reading goal: %w", err)
	}
	return nil
}

// GetGoal returns the book target for year.
func (s *Store) GetGoal(ctx context.Context, year int) (int, error) {
	var target int
	err := s.db.QueryRowContext(ctx,
		"SELECT target FROM reading_goals WHERE year = ?", year).Scan(&target)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoGoal
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get reading goal: %w", err)
	}
	return target, nil
}
