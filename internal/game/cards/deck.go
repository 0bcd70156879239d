package cards

import (
	"math/rand/v2"

	"golang.org/x/crypto/blake2b"
)

const (
	// DeckSize is the number of cards in a standard deck.
	DeckSize = 52
	// Columns is the number of tableau columns produced by Deal.
	Columns = 7
	// DealtCards is the number of cards Deal places on the tableau.
	DealtCards = Columns * (Columns + 1) / 2
)

// RNG is the randomness source used by Shuffle. IntN returns a value in [0, n).
type RNG interface {
	IntN(n int) int
}

// defaultRNG delegates to math/rand/v2 (auto-seeded).
type defaultRNG struct{}

func (defaultRNG) IntN(n int) int { return rand.IntN(n) }

// NewRNG returns an auto-seeded source suitable for normal play.
func NewRNG() RNG {
	return defaultRNG{}
}

// NewSeededRNG returns a deterministic source derived from seed. Equal seeds shuffle equally.
func NewSeededRNG(seed string) RNG {
	key := blake2b.Sum256([]byte(seed))
	return rand.New(rand.NewChaCha8(key))
}

// NewDeck builds the 52 canonical cards face-down, suits then ranks in enumeration order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for rank := Ace; rank <= King; rank++ {
			deck = append(deck, New(suit, rank))
		}
	}
	return deck
}

// Shuffle permutes deck in place with a Fisher-Yates pass from the last index down.
func Shuffle(deck []Card, rng RNG) {
	if rng == nil {
		rng = defaultRNG{}
	}
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// Deal lays out a Klondike tableau from the end of deck. Row by row, column j receives one
// card for every row i <= j, so column j ends with j+1 cards and only its last card face-up.
// The remaining cards are returned face-down as the stock, in deck order.
// deck itself is not modified.
func Deal(deck []Card) (tableau [Columns][]Card, stock []Card) {
	remaining := make([]Card, len(deck))
	copy(remaining, deck)

	for i := 0; i < Columns; i++ {
		for j := i; j < Columns; j++ {
			if len(remaining) == 0 {
				return tableau, nil
			}
			card := remaining[len(remaining)-1]
			remaining = remaining[:len(remaining)-1]
			card.FaceUp = i == j
			tableau[j] = append(tableau[j], card)
		}
	}

	for k := range remaining {
		remaining[k].FaceUp = false
	}
	return tableau, remaining
}
