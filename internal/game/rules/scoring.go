package rules

import (
	"github.com/magefree/solitaire-server-go/internal/game/pile"
)

// Point values of the scoring policy.
const (
	PointsWasteToTableau  = 25
	PointsToFoundation    = 100
	PointsRevealInTableau = 20
	PenaltyRecycle        = -100
	PenaltyUndo           = -2
)

// MoveScore returns the points earned by moving the last runLength cards of sourcePile from
// source to target. It must be evaluated against the source pile as it was before the move.
// Moves that start on a foundation never score.
func MoveScore(source, target pile.Ref, sourcePile pile.Pile, runLength int) int {
	switch {
	case source.Kind == pile.KindFoundation:
		return 0
	case source.Kind == pile.KindWaste && target.Kind == pile.KindTableau:
		return PointsWasteToTableau
	case target.Kind == pile.KindFoundation:
		return PointsToFoundation
	case source.Kind == pile.KindTableau && target.Kind == pile.KindTableau:
		if Reveals(sourcePile, runLength) {
			return PointsRevealInTableau
		}
	}
	return 0
}

// Reveals reports whether removing the last runLength cards of p exposes a face-down card.
func Reveals(p pile.Pile, runLength int) bool {
	beneath := p.Len() - runLength
	return beneath > 0 && !p[beneath-1].FaceUp
}

// ApplyDelta adds delta to score, clamping the result at zero.
func ApplyDelta(score, delta int) int {
	score += delta
	if score < 0 {
		return 0
	}
	return score
}
