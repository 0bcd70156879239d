package game

import (
	"github.com/magefree/solitaire-server-go/internal/game/cards"
	"github.com/magefree/solitaire-server-go/internal/game/pile"
)

// CardView is a card as shown to a client. Face-down cards carry no identity.
type CardView struct {
	ID        string `json:"id,omitempty"`
	Suit      string `json:"suit,omitempty"`
	Rank      string `json:"rank,omitempty"`
	Value     int    `json:"value,omitempty"`
	Color     string `json:"color,omitempty"`
	Label     string `json:"label,omitempty"`
	FaceUp    bool   `json:"face_up"`
	Index     int    `json:"index"`
	Draggable bool   `json:"draggable"`
}

// PileView is one pile. For the waste, Cards only holds the visible tail.
type PileView struct {
	Pile  string     `json:"pile"`
	Count int        `json:"count"`
	Cards []CardView `json:"cards"`
}

// StateView is the renderer's picture of a session.
type StateView struct {
	SessionID      string     `json:"session_id"`
	GameID         string     `json:"game_id,omitempty"`
	Phase          string     `json:"phase"`
	DrawMode       int        `json:"draw_mode,omitempty"`
	Seed           string     `json:"seed,omitempty"`
	Generation     uint64     `json:"generation"`
	Stock          PileView   `json:"stock"`
	Waste          PileView   `json:"waste"`
	Foundations    []PileView `json:"foundations"`
	Tableau        []PileView `json:"tableau"`
	Score          int        `json:"score"`
	HighScore      int        `json:"high_score"`
	ElapsedSeconds int        `json:"elapsed_seconds"`
	Elapsed        string     `json:"elapsed"`
	Moves          int        `json:"moves"`
	Won            bool       `json:"won"`
	CanUndo        bool       `json:"can_undo"`
	CanDraw        bool       `json:"can_draw"`
	HasMoves       bool       `json:"has_moves"`
	HintPending    bool       `json:"hint_pending"`
	Hint           string     `json:"hint,omitempty"`
	Checksum       string     `json:"checksum,omitempty"`
	Drag           *DragView  `json:"drag,omitempty"`
	LegalMoves     []MoveView `json:"legal_moves,omitempty"`
}

// DragView describes the run held by an in-progress drag.
type DragView struct {
	Source string     `json:"source"`
	Index  int        `json:"index"`
	Cards  []CardView `json:"cards"`
}

// MoveView is a legal move in wire form.
type MoveView struct {
	Source string `json:"source"`
	Index  int    `json:"index"`
	Target string `json:"target"`
}

func newCardView(c cards.Card, index int, draggable bool) CardView {
	if !c.FaceUp {
		return CardView{Index: index}
	}
	return CardView{
		ID:        c.ID(),
		Suit:      c.Suit.String(),
		Rank:      c.Rank.String(),
		Value:     c.Value(),
		Color:     c.Color().String(),
		Label:     c.String(),
		FaceUp:    true,
		Index:     index,
		Draggable: draggable,
	}
}

// newPileView renders p. Only cards at or after visibleFrom are included; draggable marks
// which face-up cards may start a drag.
func newPileView(ref pile.Ref, p pile.Pile, visibleFrom int, draggable func(i int) bool) PileView {
	if visibleFrom < 0 {
		visibleFrom = 0
	}
	view := PileView{Pile: ref.String(), Count: p.Len(), Cards: make([]CardView, 0, p.Len())}
	for i := visibleFrom; i < p.Len(); i++ {
		view.Cards = append(view.Cards, newCardView(p[i], i, draggable(i)))
	}
	return view
}

// wasteVisible is how many waste cards are fanned: three in draw-3 mode, one otherwise.
func wasteVisible(drawCount int) int {
	if drawCount >= int(DrawThree) {
		return int(DrawThree)
	}
	return 1
}

// buildBoardView fills the pile sections of view from s. Only the top of the waste and of
// each foundation can be dragged; any face-up tableau card can.
func buildBoardView(view *StateView, s *State, drawCount int) {
	view.Stock = PileView{Pile: pile.Stock().String(), Count: s.Stock.Len(), Cards: []CardView{}}

	wasteTop := s.Waste.Len() - 1
	view.Waste = newPileView(pile.Waste(), s.Waste, s.Waste.Len()-wasteVisible(drawCount), func(i int) bool {
		return i == wasteTop
	})

	view.Foundations = make([]PileView, len(s.Foundations))
	for i, f := range s.Foundations {
		top := f.Len() - 1
		view.Foundations[i] = newPileView(pile.Foundation(i), f, 0, func(j int) bool { return j == top })
	}

	view.Tableau = make([]PileView, len(s.Tableau))
	for i, col := range s.Tableau {
		view.Tableau[i] = newPileView(pile.Tableau(i), col, 0, func(int) bool { return true })
	}

	view.Score = s.Score
	view.Won = s.IsWon()
	view.CanDraw = CanDraw(s)
	view.Checksum = s.Checksum()

	moves := LegalMoves(s)
	view.HasMoves = len(moves) > 0 || view.CanDraw
	view.LegalMoves = make([]MoveView, len(moves))
	for i, m := range moves {
		view.LegalMoves[i] = MoveView{Source: m.Source.String(), Index: m.Index, Target: m.Target.String()}
	}
}

// NewBoardView renders a bare state, such as a replay frame, outside any session.
func NewBoardView(s *State, drawCount int) StateView {
	var view StateView
	buildBoardView(&view, s, drawCount)
	return view
}

func emptyBoardView(view *StateView) {
	view.Stock = PileView{Pile: pile.Stock().String(), Cards: []CardView{}}
	view.Waste = PileView{Pile: pile.Waste().String(), Cards: []CardView{}}
	view.Foundations = make([]PileView, len(cards.Suits))
	for i := range view.Foundations {
		view.Foundations[i] = PileView{Pile: pile.Foundation(i).String(), Cards: []CardView{}}
	}
	view.Tableau = make([]PileView, cards.Columns)
	for i := range view.Tableau {
		view.Tableau[i] = PileView{Pile: pile.Tableau(i).String(), Cards: []CardView{}}
	}
}
