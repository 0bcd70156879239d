package game

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ReplayStep names a move of the playback cursor.
type ReplayStep string

const (
	StepStart    ReplayStep = "start"
	StepNext     ReplayStep = "next"
	StepPrevious ReplayStep = "previous"
	StepSkip     ReplayStep = "skip"
)

// ParseReplayStep validates a cursor step name, ignoring case.
func ParseReplayStep(name string) (ReplayStep, error) {
	switch step := ReplayStep(strings.ToLower(name)); step {
	case StepStart, StepNext, StepPrevious, StepSkip:
		return step, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidReplayStep, name)
	}
}

// Replay is the in-memory record of one game: the dealt position followed by the state after
// every transition, including undos. It is dropped when the next game starts.
//
// The playback cursor is the index of the frame last returned by Step, or -1 before playback.
type Replay struct {
	GameID string

	mu     sync.RWMutex
	frames []*State
	cursor int
}

// NewReplay creates an empty replay.
func NewReplay(gameID string) *Replay {
	return &Replay{
		GameID: gameID,
		frames: make([]*State, 0, 64),
		cursor: -1,
	}
}

// replayID derives a stable game id from the owning session and its game generation.
func replayID(sessionID string, generation uint64) string {
	seed := fmt.Sprintf("%s|game|%d", sessionID, generation)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

// RecordState appends a copy of state.
func (r *Replay) RecordState(state *State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, state.Clone())
}

// Step moves the cursor and returns the frame it lands on with its index. Next and previous
// report false at either end and leave the cursor where it was; skip clamps to the recording.
func (r *Replay) Step(step ReplayStep, count int) (int, *State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.frames) == 0 {
		return -1, nil, false
	}

	target := r.cursor
	switch step {
	case StepStart:
		target = 0
	case StepNext:
		target++
	case StepPrevious:
		target--
	case StepSkip:
		target = min(max(target+count, 0), len(r.frames)-1)
	default:
		return r.cursor, nil, false
	}
	if target < 0 || target >= len(r.frames) {
		return r.cursor, nil, false
	}

	r.cursor = target
	return target, r.frames[target].Clone(), true
}

// Cursor returns the index of the frame last returned by Step, or -1.
func (r *Replay) Cursor() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cursor
}

// Size returns the number of recorded states.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.frames)
}

// GetStateAt returns a copy of the state at index, or nil.
func (r *Replay) GetStateAt(index int) *State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= len(r.frames) {
		return nil
	}
	return r.frames[index].Clone()
}
