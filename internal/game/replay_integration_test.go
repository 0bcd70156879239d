package game

import (
	"context"
	"testing"

	"github.com/magefree/solitaire-server-go/internal/game/pile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayRecordingDuringGameplay(t *testing.T) {
	ctx := context.Background()
	sess, _ := newTestSession(t, nil, nil)
	require.NoError(t, sess.StartSeeded(ctx, DrawOne, "replay-gameplay"))

	// Initial state should be recorded from the deal
	replay := sess.Replay()
	require.NotNil(t, replay)
	initialSize := replay.Size()
	assert.Equal(t, 1, initialSize, "Dealt position should be recorded")

	// Draw a few times (should record states)
	for i := 0; i < 3; i++ {
		action, err := sess.Draw(ctx)
		require.NoError(t, err)
		require.Equal(t, DrawCards, action)
	}
	assert.Equal(t, initialSize+3, replay.Size(), "Each draw should record a state")

	// Undo records the restored position too
	undone, err := sess.Undo(ctx)
	require.NoError(t, err)
	require.True(t, undone)
	assert.Equal(t, initialSize+4, replay.Size())

	// Rejected moves record nothing
	_, err = sess.Move(ctx, Move{Source: pile.Stock(), Index: TopIndex, Target: pile.Tableau(0)})
	require.ErrorIs(t, err, ErrMoveRejected)
	assert.Equal(t, initialSize+4, replay.Size())

	// The last frame matches the live state
	last := replay.GetStateAt(replay.Size() - 1)
	require.NotNil(t, last)
	assert.Equal(t, sess.State().Checksum(), last.Checksum())
}

func TestReplayPlayback(t *testing.T) {
	ctx := context.Background()
	sess, _ := newTestSession(t, nil, nil)
	require.NoError(t, sess.StartSeeded(ctx, DrawOne, "replay-playback"))
	for i := 0; i < 4; i++ {
		_, err := sess.Draw(ctx)
		require.NoError(t, err)
	}

	replay := sess.Replay()
	require.Equal(t, 5, replay.Size())

	index, frame, ok := replay.Step(StepStart, 0)
	require.True(t, ok)
	assert.Equal(t, 0, index)
	assert.Equal(t, 24, frame.Stock.Len(), "first frame is the deal")

	index, frame, ok = replay.Step(StepSkip, 4)
	require.True(t, ok)
	assert.Equal(t, 4, index)
	assert.Equal(t, 20, frame.Stock.Len())
	assert.Equal(t, 4, frame.Waste.Len())

	_, frame, ok = replay.Step(StepPrevious, 0)
	require.True(t, ok)
	assert.Equal(t, 3, frame.Waste.Len())

	// Frames are copies; mutating one leaves the recording intact
	frame.Waste = nil
	assert.Equal(t, 3, replay.GetStateAt(3).Waste.Len())
}

func TestReplayIdentityPerGame(t *testing.T) {
	ctx := context.Background()
	sess, _ := newTestSession(t, nil, nil)
	require.NoError(t, sess.StartSeeded(ctx, DrawThree, "replay-identity"))
	first := sess.Replay().GameID

	require.NoError(t, sess.PlayAgain(ctx))
	second := sess.Replay().GameID

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second, "every game gets its own replay")
	assert.Equal(t, replayID(sess.ID, sess.Generation()), second)
}

func TestReplayAbsentBeforeStart(t *testing.T) {
	sess, _ := newTestSession(t, nil, nil)
	assert.Nil(t, sess.Replay(), "No replay before a game is dealt")
	assert.Empty(t, sess.View().GameID)
}

func TestReplayCleanupOnNewGame(t *testing.T) {
	ctx := context.Background()
	sess, _ := newTestSession(t, nil, nil)
	require.NoError(t, sess.StartSeeded(ctx, DrawOne, "replay-cleanup"))
	_, err := sess.Draw(ctx)
	require.NoError(t, err)

	old := sess.Replay()
	require.Equal(t, 2, old.Size())

	require.NoError(t, sess.PlayAgain(ctx))
	assert.Equal(t, 1, sess.Replay().Size(), "a new deal starts a fresh recording")

	require.NoError(t, sess.NewGame(ctx))
	assert.Nil(t, sess.Replay(), "mode selection drops the replay")
}
