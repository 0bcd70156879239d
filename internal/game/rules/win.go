package rules

import (
	"github.com/magefree/solitaire-server-go/internal/game/cards"
	"github.com/magefree/solitaire-server-go/internal/game/pile"
)

// IsWon reports whether every card has reached the foundations.
func IsWon(foundations [FoundationCount]pile.Pile) bool {
	total := 0
	for _, f := range foundations {
		total += f.Len()
	}
	return total == cards.DeckSize
}
