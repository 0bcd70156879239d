package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/magefree/solitaire-server-go/internal/game/cards"
)

// FormatElapsed renders a duration as MM:SS. Minutes keep counting past 59.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func describeCard(c cards.Card) string {
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}

// FormatForHint renders s as the text summary sent to the hint oracle: score, time, top of
// the waste, top of each foundation and every tableau column with face-down cards hidden.
func FormatForHint(s *State, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString("Current Klondike solitaire game state:\n")
	fmt.Fprintf(&b, "Score: %d\n", s.Score)
	fmt.Fprintf(&b, "Time: %s\n", FormatElapsed(elapsed))

	if top, ok := s.Waste.Top(); ok {
		fmt.Fprintf(&b, "Waste: %s\n", describeCard(top))
	} else {
		b.WriteString("Waste: empty\n")
	}
	fmt.Fprintf(&b, "Cards in stock: %d\n", s.Stock.Len())

	b.WriteString("Foundations:\n")
	for i, f := range s.Foundations {
		suit := cards.Suits[i]
		if top, ok := f.Top(); ok {
			fmt.Fprintf(&b, "- %s: %s\n", suit, describeCard(top))
		} else {
			fmt.Fprintf(&b, "- %s: empty\n", suit)
		}
	}

	b.WriteString("Columns:\n")
	for i, col := range s.Tableau {
		if col.Empty() {
			fmt.Fprintf(&b, "- Column %d: empty\n", i+1)
			continue
		}
		parts := make([]string, len(col))
		for j, c := range col {
			if c.FaceUp {
				parts[j] = describeCard(c)
			} else {
				parts[j] = "face down"
			}
		}
		fmt.Fprintf(&b, "- Column %d: %s\n", i+1, strings.Join(parts, ", "))
	}
	return b.String()
}
