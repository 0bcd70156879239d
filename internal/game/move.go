package game

import (
	"fmt"

	"github.com/magefree/solitaire-server-go/internal/game/cards"
	"github.com/magefree/solitaire-server-go/internal/game/pile"
	"github.com/magefree/solitaire-server-go/internal/game/rules"
)

// TopIndex selects the top card of the source pile.
const TopIndex = -1

// Move is a candidate transfer of the run starting at Index in Source onto Target.
type Move struct {
	Source pile.Ref
	Index  int
	Target pile.Ref
}

func (m Move) String() string {
	return fmt.Sprintf("%s[%d] -> %s", m.Source, m.Index, m.Target)
}

// Outcome describes an applied move.
type Outcome struct {
	Cards    []cards.Card
	Points   int
	Revealed bool
	Won      bool
}

// selectRun returns the cards a move would lift from its source, with Index resolved.
// Waste and foundation piles only offer their top card; tableau columns offer any face-up run
// that ends at the top. The stock is never a move source.
func selectRun(s *State, m Move) ([]cards.Card, int, error) {
	if m.Source.Kind == pile.KindStock {
		return nil, 0, reject(m, "The stock is not a move source")
	}
	src, err := s.Pile(m.Source)
	if err != nil {
		return nil, 0, reject(m, err.Error())
	}
	if src.Empty() {
		return nil, 0, reject(m, "Source pile is empty")
	}

	index := m.Index
	if index == TopIndex {
		index = src.Len() - 1
	}
	if index < 0 || index >= src.Len() {
		return nil, 0, reject(m, "Card index out of range")
	}
	if m.Source.Kind != pile.KindTableau && index != src.Len()-1 {
		return nil, 0, reject(m, "Only the top card of this pile can be moved")
	}

	run := src.Slice(index)
	for _, c := range run {
		if !c.FaceUp {
			return nil, 0, reject(m, "Face-down cards cannot be moved")
		}
	}
	return run, index, nil
}

// Apply validates m against s and returns the resulting state. s is never modified; on
// rejection the returned error wraps ErrMoveRejected.
//
// Scoring is computed against the source pile as it was before the cards are lifted, so a
// tableau card about to be revealed is still face-down when the policy inspects it.
func Apply(s *State, m Move) (*State, Outcome, error) {
	run, index, err := selectRun(s, m)
	if err != nil {
		return nil, Outcome{}, err
	}
	m.Index = index

	target, err := s.Pile(m.Target)
	if err != nil {
		return nil, Outcome{}, reject(m, err.Error())
	}
	if result := rules.CheckMove(run, m.Source, m.Target, *target); !result.Legal {
		return nil, Outcome{}, &RejectedError{Move: m, Result: result}
	}

	src, _ := s.Pile(m.Source)
	points := rules.MoveScore(m.Source, m.Target, *src, len(run))

	next := s.Clone()
	next.Score = rules.ApplyDelta(next.Score, points)

	nextSrc, _ := next.Pile(m.Source)
	moved := nextSrc.Take(len(run))
	revealed := false
	if m.Source.Kind == pile.KindTableau {
		revealed = nextSrc.FlipTop()
	}

	nextTarget, _ := next.Pile(m.Target)
	nextTarget.Push(moved...)

	return next, Outcome{
		Cards:    moved,
		Points:   points,
		Revealed: revealed,
		Won:      next.IsWon(),
	}, nil
}

// DrawAction reports what a stock interaction did.
type DrawAction int

const (
	DrawNone DrawAction = iota
	DrawCards
	DrawRecycle
)

func (a DrawAction) String() string {
	switch a {
	case DrawCards:
		return "draw"
	case DrawRecycle:
		return "recycle"
	default:
		return "none"
	}
}

// Draw applies a stock interaction to a copy of s. With cards in the stock it turns up to
// drawCount of them onto the waste one at a time; with an empty stock it turns the waste over
// into a new stock at a penalty. With both empty nothing happens and s itself is returned.
func Draw(s *State, drawCount int) (*State, DrawAction) {
	switch {
	case !s.Stock.Empty():
		next := s.Clone()
		n := min(drawCount, next.Stock.Len())
		for i := 0; i < n; i++ {
			c, _ := next.Stock.Pop()
			c.FaceUp = true
			next.Waste.Push(c)
		}
		return next, DrawCards
	case !s.Waste.Empty():
		next := s.Clone()
		next.Score = rules.ApplyDelta(next.Score, rules.PenaltyRecycle)
		stock := make(pile.Pile, 0, next.Waste.Len())
		for i := next.Waste.Len() - 1; i >= 0; i-- {
			c := next.Waste[i]
			c.FaceUp = false
			stock = append(stock, c)
		}
		next.Stock = stock
		next.Waste = pile.Pile{}
		return next, DrawRecycle
	default:
		return s, DrawNone
	}
}
