package game

import (
	"fmt"

	"github.com/magefree/solitaire-server-go/internal/game/cards"
	"github.com/magefree/solitaire-server-go/internal/game/pile"
	"github.com/magefree/solitaire-server-go/internal/game/rules"
)

// State is the complete position of a Klondike game plus its score.
type State struct {
	Stock       pile.Pile
	Waste       pile.Pile
	Foundations [rules.FoundationCount]pile.Pile
	Tableau     [rules.TableauCount]pile.Pile
	Score       int
}

// NewState deals deck into a fresh game with a zero score.
func NewState(deck []cards.Card) *State {
	columns, stock := cards.Deal(deck)
	s := &State{Stock: pile.Pile(stock)}
	for i := range columns {
		s.Tableau[i] = pile.Pile(columns[i])
	}
	return s
}

// Clone returns a deep copy. Cards are values, so copying the pile slices is enough.
func (s *State) Clone() *State {
	c := &State{
		Stock: s.Stock.Clone(),
		Waste: s.Waste.Clone(),
		Score: s.Score,
	}
	for i := range s.Foundations {
		c.Foundations[i] = s.Foundations[i].Clone()
	}
	for i := range s.Tableau {
		c.Tableau[i] = s.Tableau[i].Clone()
	}
	return c
}

// Pile resolves a reference to the pile it addresses.
func (s *State) Pile(ref pile.Ref) (*pile.Pile, error) {
	switch ref.Kind {
	case pile.KindStock:
		return &s.Stock, nil
	case pile.KindWaste:
		return &s.Waste, nil
	case pile.KindFoundation:
		if ref.Index < 0 || ref.Index >= len(s.Foundations) {
			return nil, fmt.Errorf("foundation index %d out of range", ref.Index)
		}
		return &s.Foundations[ref.Index], nil
	case pile.KindTableau:
		if ref.Index < 0 || ref.Index >= len(s.Tableau) {
			return nil, fmt.Errorf("tableau index %d out of range", ref.Index)
		}
		return &s.Tableau[ref.Index], nil
	default:
		return nil, fmt.Errorf("unknown pile kind %d", ref.Kind)
	}
}

func (s *State) eachPile(fn func(ref pile.Ref, p pile.Pile)) {
	fn(pile.Stock(), s.Stock)
	fn(pile.Waste(), s.Waste)
	for i, f := range s.Foundations {
		fn(pile.Foundation(i), f)
	}
	for i, t := range s.Tableau {
		fn(pile.Tableau(i), t)
	}
}

// CardCount returns the number of cards across all piles.
func (s *State) CardCount() int {
	total := 0
	s.eachPile(func(_ pile.Ref, p pile.Pile) {
		total += p.Len()
	})
	return total
}

// IsWon reports whether all cards are on the foundations.
func (s *State) IsWon() bool {
	return rules.IsWon(s.Foundations)
}

// Validate checks that the 52 cards are partitioned across the piles, each exactly once.
func (s *State) Validate() error {
	var seen [cards.DeckSize]string
	count := 0
	var err error

	s.eachPile(func(ref pile.Ref, p pile.Pile) {
		for _, c := range p {
			if err != nil {
				return
			}
			key := c.Key()
			if key < 0 || key >= cards.DeckSize {
				err = fmt.Errorf("invalid card %v in %s", c, ref)
				return
			}
			if seen[key] != "" {
				err = fmt.Errorf("card %s in both %s and %s", c.ID(), seen[key], ref)
				return
			}
			seen[key] = ref.String()
			count++
		}
	})
	if err != nil {
		return err
	}
	if count != cards.DeckSize {
		return fmt.Errorf("expected %d cards, found %d", cards.DeckSize, count)
	}
	if s.Score < 0 {
		return fmt.Errorf("negative score %d", s.Score)
	}
	return nil
}
