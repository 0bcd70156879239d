package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/magefree/solitaire-server-go/internal/config"
	"github.com/magefree/solitaire-server-go/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	_ game.HighScoreStore = (*HighScoreRepository)(nil)
	_ game.HighScoreStore = (*MemoryHighScoreStore)(nil)
)

func TestMemoryHighScoreStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHighScoreStore(120)

	score, err := store.HighScore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 120, score)

	require.NoError(t, store.SetHighScore(ctx, 80))
	score, _ = store.HighScore(ctx)
	assert.Equal(t, 120, score, "lower score must not overwrite")

	require.NoError(t, store.SetHighScore(ctx, 400))
	score, _ = store.HighScore(ctx)
	assert.Equal(t, 400, score)
}

func TestMemoryHighScoreStoreConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHighScoreStore(0)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			_ = store.SetHighScore(ctx, score)
		}(i * 10)
	}
	wg.Wait()

	score, _ := store.HighScore(ctx)
	assert.Equal(t, 500, score)
}

func TestNewDBRequiresURL(t *testing.T) {
	_, err := NewDB(context.Background(), config.DatabaseConfig{}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestNewDBRejectsBadURL(t *testing.T) {
	_, err := NewDB(context.Background(), config.DatabaseConfig{URL: "postgres://%zz", MaxConns: 1}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

// TestHighScoreRepository runs against a real PostgreSQL when DATABASE_URL is set.
func TestHighScoreRepository(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := NewDB(ctx, config.DatabaseConfig{URL: url, MaxConns: 2}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer db.Close()

	slot := fmt.Sprintf("test-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM high_scores WHERE slot = $1`, slot)
	})

	repo := NewHighScoreRepository(db, slot)
	assert.Equal(t, slot, repo.Slot())

	score, err := repo.HighScore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, score)

	require.NoError(t, repo.SetHighScore(ctx, 300))
	require.NoError(t, repo.SetHighScore(ctx, 150))
	score, err = repo.HighScore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 300, score)

	assert.Error(t, repo.SetHighScore(ctx, -1))

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	var found bool
	for _, e := range entries {
		if e.Slot == slot {
			found = true
			assert.Equal(t, 300, e.Score)
		}
	}
	assert.True(t, found)
	assert.NotNil(t, db.Stats())
}
