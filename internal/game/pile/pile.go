package pile

import (
	"fmt"

	"github.com/magefree/solitaire-server-go/internal/game/cards"
)

// Kind identifies the role of a pile on the table.
type Kind int

const (
	KindStock Kind = iota
	KindWaste
	KindFoundation
	KindTableau
)

func (k Kind) String() string {
	switch k {
	case KindStock:
		return "stock"
	case KindWaste:
		return "waste"
	case KindFoundation:
		return "foundation"
	case KindTableau:
		return "tableau"
	default:
		return "unknown"
	}
}

// ParseKind converts a kind name into a Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "stock":
		return KindStock, nil
	case "waste":
		return KindWaste, nil
	case "foundation":
		return KindFoundation, nil
	case "tableau":
		return KindTableau, nil
	default:
		return 0, fmt.Errorf("unknown pile kind %q", name)
	}
}

// Ref addresses a single pile. Index is only meaningful for foundations and tableau columns.
type Ref struct {
	Kind  Kind
	Index int
}

// Stock, Waste, Foundation and Tableau build references.
func Stock() Ref               { return Ref{Kind: KindStock} }
func Waste() Ref               { return Ref{Kind: KindWaste} }
func Foundation(index int) Ref { return Ref{Kind: KindFoundation, Index: index} }
func Tableau(index int) Ref    { return Ref{Kind: KindTableau, Index: index} }

func (r Ref) String() string {
	switch r.Kind {
	case KindFoundation, KindTableau:
		return fmt.Sprintf("%s-%d", r.Kind, r.Index)
	default:
		return r.Kind.String()
	}
}

// Pile is an ordered run of cards; the top is the last element.
// It is plain storage: no placement rules are enforced here.
type Pile []cards.Card

// Len returns the number of cards.
func (p Pile) Len() int {
	return len(p)
}

// Empty reports whether the pile holds no cards.
func (p Pile) Empty() bool {
	return len(p) == 0
}

// Top returns the last card.
func (p Pile) Top() (cards.Card, bool) {
	if len(p) == 0 {
		return cards.Card{}, false
	}
	return p[len(p)-1], true
}

// Push appends cards in order.
func (p *Pile) Push(cs ...cards.Card) {
	*p = append(*p, cs...)
}

// Pop removes and returns the top card.
func (p *Pile) Pop() (cards.Card, bool) {
	n := len(*p)
	if n == 0 {
		return cards.Card{}, false
	}
	c := (*p)[n-1]
	*p = (*p)[:n-1]
	return c, true
}

// Slice returns a copy of the run from index to the top.
func (p Pile) Slice(index int) []cards.Card {
	if index < 0 || index >= len(p) {
		return nil
	}
	out := make([]cards.Card, len(p)-index)
	copy(out, p[index:])
	return out
}

// Take removes the last n cards and returns them in their original order.
func (p *Pile) Take(n int) []cards.Card {
	if n <= 0 {
		return nil
	}
	if n > len(*p) {
		n = len(*p)
	}
	start := len(*p) - n
	out := make([]cards.Card, n)
	copy(out, (*p)[start:])
	*p = (*p)[:start]
	return out
}

// FlipTop turns the top card face-up. It reports whether a face-down card was flipped.
func (p Pile) FlipTop() bool {
	if len(p) == 0 || p[len(p)-1].FaceUp {
		return false
	}
	p[len(p)-1].FaceUp = true
	return true
}

// Clone returns an independent copy.
func (p Pile) Clone() Pile {
	if p == nil {
		return nil
	}
	out := make(Pile, len(p))
	copy(out, p)
	return out
}
