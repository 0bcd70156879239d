package rules

import (
	"fmt"

	"github.com/magefree/solitaire-server-go/internal/game/cards"
	"github.com/magefree/solitaire-server-go/internal/game/pile"
)

const (
	// FoundationCount is the number of foundation piles, one per suit.
	FoundationCount = 4
	// TableauCount is the number of tableau columns.
	TableauCount = cards.Columns
)

// FoundationSuit returns the suit a foundation accepts. Foundations follow suit enumeration
// order: spades, hearts, clubs, diamonds.
func FoundationSuit(index int) (cards.Suit, bool) {
	if index < 0 || index >= FoundationCount {
		return 0, false
	}
	return cards.Suits[index], true
}

// IsValidTableauMove reports whether a run led by lead may be placed on target.
// An empty column only accepts a King; otherwise the lead must be one lower than the top and
// of the opposite color.
func IsValidTableauMove(lead cards.Card, target pile.Pile) bool {
	top, ok := target.Top()
	if !ok {
		return lead.Rank == cards.King
	}
	return lead.Color() != top.Color() && lead.Value() == top.Value()-1
}

// IsValidFoundationMove reports whether a run of runLength cards led by lead may be placed on
// the foundation at foundationIndex. Only single cards of the foundation's suit are accepted,
// building up from the Ace.
func IsValidFoundationMove(lead cards.Card, runLength int, target pile.Pile, foundationIndex int) bool {
	if runLength != 1 {
		return false
	}
	suit, ok := FoundationSuit(foundationIndex)
	if !ok || lead.Suit != suit {
		return false
	}
	top, ok := target.Top()
	if !ok {
		return lead.Rank == cards.Ace
	}
	return lead.Value() == top.Value()+1
}

// LegalityResult represents the result of a legality check.
type LegalityResult struct {
	Legal   bool
	Reason  string
	Details map[string]string
}

func illegal(reason string, details map[string]string) LegalityResult {
	return LegalityResult{Legal: false, Reason: reason, Details: details}
}

// CheckMove validates placing run (taken from source) onto target, whose current contents are
// targetPile. Source extraction (face-up, index bounds) is the caller's concern; this checks the
// destination rules only.
func CheckMove(run []cards.Card, source, target pile.Ref, targetPile pile.Pile) LegalityResult {
	if len(run) == 0 {
		return illegal("Empty run", nil)
	}
	if source == target {
		return illegal("Source and target are the same pile", map[string]string{
			"pile": source.String(),
		})
	}

	lead := run[0]
	details := map[string]string{
		"card":   lead.ID(),
		"run":    fmt.Sprintf("%d", len(run)),
		"source": source.String(),
		"target": target.String(),
	}

	switch target.Kind {
	case pile.KindTableau:
		if target.Index < 0 || target.Index >= TableauCount {
			return illegal("Tableau index out of range", details)
		}
		if !IsValidTableauMove(lead, targetPile) {
			if targetPile.Empty() {
				return illegal("Only a King may start an empty column", details)
			}
			return illegal("Tableau requires descending rank and alternating color", details)
		}
	case pile.KindFoundation:
		if target.Index < 0 || target.Index >= FoundationCount {
			return illegal("Foundation index out of range", details)
		}
		if !IsValidFoundationMove(lead, len(run), targetPile, target.Index) {
			if len(run) != 1 {
				return illegal("Foundations accept single cards only", details)
			}
			return illegal("Foundation requires same suit ascending from Ace", details)
		}
	default:
		return illegal("Cards can only be moved to tableau or foundation piles", details)
	}

	return LegalityResult{
		Legal:  true,
		Reason: "All legality checks passed",
	}
}
