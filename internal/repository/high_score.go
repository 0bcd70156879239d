package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// HighScoreEntry is one row of the high_scores table.
type HighScoreEntry struct {
	Slot      string
	Score     int
	UpdatedAt time.Time
}

// HighScoreRepository stores the high score of one slot in PostgreSQL. It implements
// game.HighScoreStore.
type HighScoreRepository struct {
	db   *DB
	slot string
}

// NewHighScoreRepository creates a repository bound to slot.
func NewHighScoreRepository(db *DB, slot string) *HighScoreRepository {
	return &HighScoreRepository{db: db, slot: slot}
}

// Slot returns the slot this repository reads and writes.
func (r *HighScoreRepository) Slot() string {
	return r.slot
}

// HighScore returns the stored high score, or 0 when the slot has never been written.
func (r *HighScoreRepository) HighScore(ctx context.Context) (int, error) {
	var score int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT score FROM high_scores WHERE slot = $1`, r.slot,
	).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read high score: %w", err)
	}
	return score, nil
}

// SetHighScore stores score unless the slot already holds a higher one.
func (r *HighScoreRepository) SetHighScore(ctx context.Context, score int) error {
	if score < 0 {
		return fmt.Errorf("invalid high score %d", score)
	}
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO high_scores (slot, score, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (slot) DO UPDATE
		SET score = GREATEST(high_scores.score, EXCLUDED.score),
		    updated_at = CASE WHEN EXCLUDED.score > high_scores.score
		                      THEN EXCLUDED.updated_at ELSE high_scores.updated_at END`,
		r.slot, score,
	)
	if err != nil {
		return fmt.Errorf("failed to write high score: %w", err)
	}
	return nil
}

// List returns every slot ordered by score, highest first.
func (r *HighScoreRepository) List(ctx context.Context) ([]HighScoreEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT slot, score, updated_at FROM high_scores ORDER BY score DESC, slot`)
	if err != nil {
		return nil, fmt.Errorf("failed to list high scores: %w", err)
	}
	defer rows.Close()

	var entries []HighScoreEntry
	for rows.Next() {
		var e HighScoreEntry
		if err := rows.Scan(&e.Slot, &e.Score, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan high score: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list high scores: %w", err)
	}
	return entries, nil
}
