package game

import (
	"github.com/magefree/solitaire-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// Engine owns the state of one game and its undo history. It is not safe for concurrent use;
// Session serializes access.
type Engine struct {
	logger          *zap.Logger
	state           *State
	history         []*State
	drawCount       int
	checkInvariants bool
}

// NewEngine starts an engine at state. drawCount is the number of cards turned per draw.
func NewEngine(state *State, drawCount int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger:    logger,
		state:     state,
		history:   make([]*State, 0, 64),
		drawCount: drawCount,
	}
}

// SetInvariantChecks enables the card conservation check after every transition.
func (e *Engine) SetInvariantChecks(enabled bool) {
	e.checkInvariants = enabled
}

// State returns a copy of the current state.
func (e *Engine) State() *State {
	return e.state.Clone()
}

// DrawCount returns the number of cards turned per draw.
func (e *Engine) DrawCount() int {
	return e.drawCount
}

// HistoryLen returns the number of undoable transitions.
func (e *Engine) HistoryLen() int {
	return len(e.history)
}

// CanUndo reports whether Undo would restore anything.
func (e *Engine) CanUndo() bool {
	return len(e.history) > 0
}

// Move applies m. The pre-move state is pushed onto the history only when the move is legal.
func (e *Engine) Move(m Move) (Outcome, error) {
	next, outcome, err := Apply(e.state, m)
	if err != nil {
		return Outcome{}, err
	}
	// Apply never mutates its input, so the current state is already an independent snapshot.
	e.history = append(e.history, e.state)
	e.state = next
	e.verify("move")

	e.logger.Debug("move applied",
		zap.Stringer("move", m),
		zap.Int("cards", len(outcome.Cards)),
		zap.Int("points", outcome.Points),
		zap.Bool("revealed", outcome.Revealed),
		zap.Int("score", e.state.Score),
	)
	return outcome, nil
}

// Draw turns cards from the stock or recycles the waste.
func (e *Engine) Draw() DrawAction {
	next, action := Draw(e.state, e.drawCount)
	if action == DrawNone {
		return action
	}
	e.history = append(e.history, e.state)
	e.state = next
	e.verify(action.String())

	e.logger.Debug("stock interaction",
		zap.Stringer("action", action),
		zap.Int("stock", e.state.Stock.Len()),
		zap.Int("waste", e.state.Waste.Len()),
		zap.Int("score", e.state.Score),
	)
	return action
}

// Undo restores the most recent snapshot and charges the undo penalty. It reports false when
// there is nothing to undo. Undo itself is not recorded.
func (e *Engine) Undo() bool {
	n := len(e.history)
	if n == 0 {
		return false
	}
	prev := e.history[n-1]
	e.history[n-1] = nil
	e.history = e.history[:n-1]

	prev.Score = rules.ApplyDelta(prev.Score, rules.PenaltyUndo)
	e.state = prev
	e.verify("undo")

	e.logger.Debug("undo",
		zap.Int("history", len(e.history)),
		zap.Int("score", e.state.Score),
	)
	return true
}

// IsWon reports whether the current state is a win.
func (e *Engine) IsWon() bool {
	return e.state.IsWon()
}

func (e *Engine) verify(transition string) {
	if !e.checkInvariants {
		return
	}
	if err := e.state.Validate(); err != nil {
		e.logger.DPanic("game state invariant violated",
			zap.String("transition", transition),
			zap.Error(err),
		)
	}
}
