package game

import (
	"github.com/magefree/solitaire-server-go/internal/game/pile"
	"github.com/magefree/solitaire-server-go/internal/game/rules"
)

// LegalMoves returns every card move Apply would accept from s. Stock interactions are not
// moves; see CanDraw.
func LegalMoves(s *State) []Move {
	moves := make([]Move, 0, 16)

	sources := make([]pile.Ref, 0, 1+rules.FoundationCount+rules.TableauCount)
	sources = append(sources, pile.Waste())
	for i := range s.Foundations {
		sources = append(sources, pile.Foundation(i))
	}
	for i := range s.Tableau {
		sources = append(sources, pile.Tableau(i))
	}

	targets := make([]pile.Ref, 0, rules.FoundationCount+rules.TableauCount)
	for i := range s.Foundations {
		targets = append(targets, pile.Foundation(i))
	}
	for i := range s.Tableau {
		targets = append(targets, pile.Tableau(i))
	}

	for _, src := range sources {
		p, _ := s.Pile(src)
		if p.Empty() {
			continue
		}
		first := p.Len() - 1
		if !(*p)[first].FaceUp {
			continue
		}
		if src.Kind == pile.KindTableau {
			for first > 0 && (*p)[first-1].FaceUp {
				first--
			}
		}
		for index := first; index < p.Len(); index++ {
			run := p.Slice(index)
			for _, dst := range targets {
				if dst == src {
					continue
				}
				target, _ := s.Pile(dst)
				if rules.CheckMove(run, src, dst, *target).Legal {
					moves = append(moves, Move{Source: src, Index: index, Target: dst})
				}
			}
		}
	}
	return moves
}

// CanDraw reports whether a stock interaction would change s.
func CanDraw(s *State) bool {
	return !s.Stock.Empty() || !s.Waste.Empty()
}
