package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/magefree/solitaire-server-go/internal/game/cards"
	"github.com/magefree/solitaire-server-go/internal/game/pile"
	"go.uber.org/zap"
)

// DrawMode is the number of cards turned per stock draw. It is chosen when a game starts and
// fixed until the player returns to mode selection.
type DrawMode int

const (
	DrawOne   DrawMode = 1
	DrawThree DrawMode = 3
)

// ParseDrawMode validates a requested draw count.
func ParseDrawMode(n int) (DrawMode, error) {
	switch DrawMode(n) {
	case DrawOne, DrawThree:
		return DrawMode(n), nil
	default:
		return 0, ErrInvalidDrawMode
	}
}

// Phase is the lifecycle position of a session.
type Phase int

const (
	PhaseSelectingMode Phase = iota
	PhasePlaying
	PhaseWon
)

func (p Phase) String() string {
	switch p {
	case PhasePlaying:
		return "playing"
	case PhaseWon:
		return "won"
	default:
		return "select_mode"
	}
}

// HighScoreStore persists the single best score.
type HighScoreStore interface {
	HighScore(ctx context.Context) (int, error)
	SetHighScore(ctx context.Context, score int) error
}

// SessionOptions tune every game a session plays.
type SessionOptions struct {
	// InvariantChecks validates card conservation after every transition.
	InvariantChecks bool
	// Seed, when set, makes Start deal the same game every time.
	Seed string
	// Now overrides the clock.
	Now func() time.Time
}

// HintRequest is a point-in-time rendering of the board for the hint oracle. Generation ties
// the answer back to the game it was asked for.
type HintRequest struct {
	Generation uint64
	Prompt     string
}

// Session is one player's game: draw mode, engine, timer, drag and hint state.
// All methods are safe for concurrent use.
type Session struct {
	ID        string
	Host      string
	CreatedAt time.Time

	logger *zap.Logger
	store  HighScoreStore
	opts   SessionOptions

	handlerMu sync.RWMutex
	handler   NotificationHandler
	// emitMu is taken before mu is released and held while notifications are delivered.
	emitMu sync.Mutex

	mu           sync.Mutex
	engine       *Engine
	mode         DrawMode
	phase        Phase
	generation   uint64
	seed         string
	startedAt    time.Time
	finishedAt   time.Time
	highScore    int
	drag         *DragSelection
	hintPending  bool
	hint         string
	replay       *Replay
	lastActivity time.Time
	closed       bool
}

// NewSession creates a session waiting for a draw mode. The high score is read from store
// once, here.
func NewSession(ctx context.Context, id, host string, store HighScoreStore, opts SessionOptions, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	now := opts.Now()
	s := &Session{
		ID:           id,
		Host:         host,
		CreatedAt:    now,
		logger:       logger.With(zap.String("session_id", id)),
		store:        store,
		opts:         opts,
		phase:        PhaseSelectingMode,
		lastActivity: now,
	}
	if store != nil {
		score, err := store.HighScore(ctx)
		if err != nil {
			s.logger.Warn("failed to read high score", zap.Error(err))
		} else {
			s.highScore = score
		}
	}
	return s
}

// SetNotificationHandler sets the renderer sink.
func (s *Session) SetNotificationHandler(handler NotificationHandler) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	s.handler = handler
}

// unlockAndEmit releases mu and delivers out. Holding emitMu across the handoff keeps
// notifications in the order their transitions were applied.
func (s *Session) unlockAndEmit(out *[]Notification) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.mu.Unlock()
	s.emit(*out)
}

func (s *Session) emit(notifications []Notification) {
	if len(notifications) == 0 {
		return
	}
	s.handlerMu.RLock()
	handler := s.handler
	s.handlerMu.RUnlock()

	if handler == nil {
		return
	}
	for _, n := range notifications {
		handler(n)
	}
}

// Start deals a new game in mode, using the configured seed if there is one.
func (s *Session) Start(ctx context.Context, mode DrawMode) error {
	return s.StartSeeded(ctx, mode, s.opts.Seed)
}

// StartSeeded deals a new game in mode. A non-empty seed makes the deal reproducible.
func (s *Session) StartSeeded(ctx context.Context, mode DrawMode, seed string) error {
	if _, err := ParseDrawMode(int(mode)); err != nil {
		return err
	}

	var out []Notification
	s.mu.Lock()
	defer s.unlockAndEmit(&out)

	if s.closed {
		return ErrSessionNotFound
	}
	s.startLocked(mode, seed)
	out = append(out, s.notificationLocked(NotifyGameState, nil))
	return nil
}

// PlayAgain deals a new game with the current draw mode.
func (s *Session) PlayAgain(ctx context.Context) error {
	var out []Notification
	s.mu.Lock()
	defer s.unlockAndEmit(&out)

	if s.closed {
		return ErrSessionNotFound
	}
	if s.mode == 0 {
		return ErrNoModeSelected
	}
	s.startLocked(s.mode, s.opts.Seed)
	out = append(out, s.notificationLocked(NotifyGameState, nil))
	return nil
}

// NewGame abandons the current game and returns to mode selection.
func (s *Session) NewGame(ctx context.Context) error {
	var out []Notification
	s.mu.Lock()
	defer s.unlockAndEmit(&out)

	if s.closed {
		return ErrSessionNotFound
	}
	s.resetLocked()
	s.mode = 0
	s.phase = PhaseSelectingMode
	s.logger.Info("returned to mode selection", zap.Uint64("generation", s.generation))

	out = append(out, s.notificationLocked(NotifyModeSelect, nil))
	return nil
}

func (s *Session) resetLocked() {
	s.generation++
	s.engine = nil
	s.drag = nil
	s.hintPending = false
	s.hint = ""
	s.replay = nil
	s.seed = ""
	s.startedAt = time.Time{}
	s.finishedAt = time.Time{}
}

func (s *Session) startLocked(mode DrawMode, seed string) {
	s.resetLocked()

	rng := cards.NewRNG()
	if seed != "" {
		rng = cards.NewSeededRNG(seed)
	}
	deck := cards.NewDeck()
	cards.Shuffle(deck, rng)

	s.engine = NewEngine(NewState(deck), int(mode), s.logger)
	s.engine.SetInvariantChecks(s.opts.InvariantChecks)
	s.engine.verify("deal")

	s.mode = mode
	s.phase = PhasePlaying
	s.seed = seed
	s.startedAt = s.opts.Now()
	s.lastActivity = s.startedAt

	s.replay = NewReplay(replayID(s.ID, s.generation))
	s.replay.RecordState(s.engine.state)

	s.logger.Info("game started",
		zap.Int("draw_mode", int(mode)),
		zap.Uint64("generation", s.generation),
		zap.String("game_id", s.replay.GameID),
		zap.Bool("seeded", seed != ""),
	)
}

func (s *Session) requirePlayingLocked() error {
	if s.closed {
		return ErrSessionNotFound
	}
	if s.engine == nil || s.phase != PhasePlaying {
		return ErrNoActiveGame
	}
	return nil
}

// Draw turns cards from the stock, or recycles the waste when the stock is empty.
func (s *Session) Draw(ctx context.Context) (DrawAction, error) {
	var out []Notification
	s.mu.Lock()
	defer s.unlockAndEmit(&out)

	if err := s.requirePlayingLocked(); err != nil {
		return DrawNone, err
	}
	s.drag = nil
	s.lastActivity = s.opts.Now()

	action := s.engine.Draw()
	if action == DrawNone {
		return action, nil
	}
	out = s.afterTransitionLocked(ctx)
	return action, nil
}

// Move applies m. A rejected move leaves the game unchanged and still notifies the renderer
// so the dragged cards snap back.
func (s *Session) Move(ctx context.Context, m Move) (Outcome, error) {
	var out []Notification
	s.mu.Lock()
	defer s.unlockAndEmit(&out)

	if err := s.requirePlayingLocked(); err != nil {
		return Outcome{}, err
	}
	s.drag = nil
	s.lastActivity = s.opts.Now()

	outcome, notes, err := s.moveLocked(ctx, m)
	out = notes
	return outcome, err
}

func (s *Session) moveLocked(ctx context.Context, m Move) (Outcome, []Notification, error) {
	outcome, err := s.engine.Move(m)
	if err != nil {
		reason := err.Error()
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			reason = rejected.Result.Reason
		}
		s.logger.Debug("move rejected", zap.Stringer("move", m), zap.String("reason", reason))
		return Outcome{}, []Notification{
			s.notificationLocked(NotifyGameState, map[string]interface{}{"rejected": reason}),
		}, err
	}
	return outcome, s.afterTransitionLocked(ctx), nil
}

// Undo restores the state before the last draw, recycle or move at a small penalty. It
// reports false when there is nothing to undo.
func (s *Session) Undo(ctx context.Context) (bool, error) {
	var out []Notification
	s.mu.Lock()
	defer s.unlockAndEmit(&out)

	if err := s.requirePlayingLocked(); err != nil {
		return false, err
	}
	s.drag = nil
	s.lastActivity = s.opts.Now()

	if !s.engine.Undo() {
		return false, nil
	}
	out = s.afterTransitionLocked(ctx)
	return true, nil
}

// afterTransitionLocked records the new state, runs win handling and builds the
// notifications for the change.
func (s *Session) afterTransitionLocked(ctx context.Context) []Notification {
	s.replay.RecordState(s.engine.state)

	if !s.engine.IsWon() {
		return []Notification{s.notificationLocked(NotifyGameState, nil)}
	}

	s.phase = PhaseWon
	s.finishedAt = s.opts.Now()
	s.drag = nil
	score := s.engine.state.Score
	newBest := s.recordHighScoreLocked(ctx, score)

	s.logger.Info("game won",
		zap.Int("score", score),
		zap.Int("high_score", s.highScore),
		zap.Bool("new_high_score", newBest),
		zap.Duration("elapsed", s.finishedAt.Sub(s.startedAt)),
		zap.Int("moves", s.engine.HistoryLen()),
	)

	return []Notification{
		s.notificationLocked(NotifyGameState, nil),
		s.notificationLocked(NotifyWin, map[string]interface{}{
			"score":          score,
			"high_score":     s.highScore,
			"new_high_score": newBest,
			"elapsed":        FormatElapsed(s.finishedAt.Sub(s.startedAt)),
		}),
	}
}

// recordHighScoreLocked persists score if it beats the high score read when the session was
// created.
func (s *Session) recordHighScoreLocked(ctx context.Context, score int) bool {
	if score <= s.highScore {
		return false
	}

	s.highScore = score
	if s.store != nil {
		if err := s.store.SetHighScore(ctx, score); err != nil {
			s.logger.Warn("failed to persist high score", zap.Int("score", score), zap.Error(err))
		}
	}
	return true
}

// BeginDrag picks up the run starting at index of source. Any previous drag is discarded.
func (s *Session) BeginDrag(source pile.Ref, index int) (DragSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requirePlayingLocked(); err != nil {
		return DragSelection{}, err
	}
	s.drag = nil
	s.lastActivity = s.opts.Now()

	run, resolved, err := selectRun(s.engine.state, Move{Source: source, Index: index})
	if err != nil {
		return DragSelection{}, err
	}
	s.drag = &DragSelection{Cards: run, Source: source, Index: resolved}
	return *s.drag, nil
}

// Drop releases the current drag on target. NoTarget cancels the drag and snaps back.
func (s *Session) Drop(ctx context.Context, target Target) (Outcome, error) {
	var out []Notification
	s.mu.Lock()
	defer s.unlockAndEmit(&out)

	if err := s.requirePlayingLocked(); err != nil {
		return Outcome{}, err
	}
	if s.drag == nil {
		return Outcome{}, ErrNoDrag
	}
	drag := *s.drag
	s.drag = nil
	s.lastActivity = s.opts.Now()

	ref, ok := target.Ref()
	if !ok {
		out = append(out, s.notificationLocked(NotifyGameState, map[string]interface{}{"rejected": "No drop target"}))
		return Outcome{}, reject(Move{Source: drag.Source, Index: drag.Index}, "No drop target")
	}
	if !drag.matches(s.engine.state) {
		out = append(out, s.notificationLocked(NotifyGameState, nil))
		return Outcome{}, reject(drag.Move(ref), "Dragged cards are no longer at their source")
	}

	outcome, notes, err := s.moveLocked(ctx, drag.Move(ref))
	out = notes
	return outcome, err
}

// CancelDrag drops the current drag, if any.
func (s *Session) CancelDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag = nil
}

// Drag returns the in-progress drag.
func (s *Session) Drag() (DragSelection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag == nil {
		return DragSelection{}, false
	}
	return *s.drag, true
}

// BeginHint marks a hint request as pending and returns the board rendering to send to the
// oracle. Only one request may be pending at a time.
func (s *Session) BeginHint() (HintRequest, error) {
	var out []Notification
	s.mu.Lock()
	defer s.unlockAndEmit(&out)

	if err := s.requirePlayingLocked(); err != nil {
		return HintRequest{}, err
	}
	if s.hintPending {
		return HintRequest{}, ErrHintPending
	}
	s.hintPending = true
	s.hint = ""
	s.lastActivity = s.opts.Now()

	req := HintRequest{
		Generation: s.generation,
		Prompt:     FormatForHint(s.engine.state, s.elapsedLocked()),
	}
	out = append(out, s.notificationLocked(NotifyGameState, nil))
	return req, nil
}

// FinishHint delivers an oracle answer. Answers for a game that has since been reset are
// dropped and FinishHint reports false.
func (s *Session) FinishHint(generation uint64, text string) bool {
	var out []Notification
	s.mu.Lock()
	defer s.unlockAndEmit(&out)

	if s.closed || generation != s.generation {
		s.logger.Debug("discarding stale hint",
			zap.Uint64("hint_generation", generation),
			zap.Uint64("generation", s.generation),
		)
		return false
	}
	s.hintPending = false
	s.hint = text
	out = append(out, s.notificationLocked(NotifyHint, map[string]interface{}{"hint": text}))
	return true
}

// View renders the session for a client.
func (s *Session) View() StateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() StateView {
	view := StateView{
		SessionID:   s.ID,
		Phase:       s.phase.String(),
		DrawMode:    int(s.mode),
		Seed:        s.seed,
		Generation:  s.generation,
		HighScore:   s.highScore,
		HintPending: s.hintPending,
		Hint:        s.hint,
	}
	if s.engine == nil {
		emptyBoardView(&view)
		view.Elapsed = FormatElapsed(0)
		return view
	}

	buildBoardView(&view, s.engine.state, int(s.mode))
	if s.replay != nil {
		view.GameID = s.replay.GameID
	}
	elapsed := s.elapsedLocked()
	view.ElapsedSeconds = int(elapsed / time.Second)
	view.Elapsed = FormatElapsed(elapsed)
	view.Moves = s.engine.HistoryLen()

	playing := s.phase == PhasePlaying
	view.CanUndo = playing && s.engine.CanUndo()
	if !playing {
		view.CanDraw = false
		view.HasMoves = false
		view.LegalMoves = nil
	}
	if s.drag != nil {
		drag := &DragView{Source: s.drag.Source.String(), Index: s.drag.Index, Cards: make([]CardView, len(s.drag.Cards))}
		for i, c := range s.drag.Cards {
			drag.Cards[i] = newCardView(c, s.drag.Index+i, true)
		}
		view.Drag = drag
	}
	return view
}

func (s *Session) elapsedLocked() time.Duration {
	if s.startedAt.IsZero() {
		return 0
	}
	end := s.opts.Now()
	if !s.finishedAt.IsZero() {
		end = s.finishedAt
	}
	return end.Sub(s.startedAt)
}

func (s *Session) notificationLocked(kind string, data map[string]interface{}) Notification {
	view := s.viewLocked()
	return Notification{
		Type:      kind,
		SessionID: s.ID,
		Timestamp: s.opts.Now(),
		View:      &view,
		Data:      data,
	}
}

// State returns a copy of the current game state, or nil when no game is dealt.
func (s *Session) State() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return nil
	}
	return s.engine.State()
}

// Replay returns the recorder of the current game, or nil.
func (s *Session) Replay() *Replay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replay
}

// Mode returns the selected draw mode, zero while selecting.
func (s *Session) Mode() DrawMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Phase returns the lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Generation increments every time a game is started or abandoned.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// HighScore returns the best score known to the session.
func (s *Session) HighScore() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highScore
}

// Touch extends the session lease.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = s.opts.Now()
}

// LastActivity returns when the session was last used.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Close ends the session. Later calls fail with ErrSessionNotFound.
func (s *Session) Close() {
	var out []Notification
	s.mu.Lock()
	defer s.unlockAndEmit(&out)

	if s.closed {
		return
	}
	s.resetLocked()
	s.closed = true
	out = append(out, Notification{Type: NotifyClosed, SessionID: s.ID, Timestamp: s.opts.Now()})
}
