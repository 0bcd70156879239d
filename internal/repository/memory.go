package repository

import (
	"context"
	"sync"
)

// MemoryHighScoreStore keeps the high score in process memory. It is used when no database is
// configured; the score is lost on restart.
type MemoryHighScoreStore struct {
	mu    sync.Mutex
	score int
}

// NewMemoryHighScoreStore creates a store holding initial.
func NewMemoryHighScoreStore(initial int) *MemoryHighScoreStore {
	return &MemoryHighScoreStore{score: initial}
}

func (m *MemoryHighScoreStore) HighScore(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.score, nil
}

// SetHighScore keeps the higher of the stored and the given score.
func (m *MemoryHighScoreStore) SetHighScore(_ context.Context, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if score > m.score {
		m.score = score
	}
	return nil
}
