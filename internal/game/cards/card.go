package cards

import "fmt"

// Suit identifies one of the four French suits.
// Order matches the foundation order: spades, hearts, clubs, diamonds.
type Suit int

const (
	Spades Suit = iota
	Hearts
	Clubs
	Diamonds
)

// Suits lists every suit in enumeration order.
var Suits = [4]Suit{Spades, Hearts, Clubs, Diamonds}

func (s Suit) String() string {
	switch s {
	case Spades:
		return "spades"
	case Hearts:
		return "hearts"
	case Clubs:
		return "clubs"
	case Diamonds:
		return "diamonds"
	default:
		return "unknown"
	}
}

// Symbol returns the unicode pip for the suit.
func (s Suit) Symbol() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Clubs:
		return "♣"
	case Diamonds:
		return "♦"
	default:
		return "?"
	}
}

// Color returns the color of cards of this suit.
func (s Suit) Color() Color {
	if s == Hearts || s == Diamonds {
		return Red
	}
	return Black
}

// ParseSuit converts a suit name back into a Suit.
func ParseSuit(name string) (Suit, error) {
	for _, s := range Suits {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown suit %q", name)
}

// Color is the derived red/black attribute of a card.
type Color int

const (
	Black Color = iota
	Red
)

func (c Color) String() string {
	if c == Red {
		return "red"
	}
	return "black"
}

// Rank is the card rank. Its numeric value is the card value, Ace=1 through King=13.
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

var rankNames = [...]string{"", "A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

func (r Rank) String() string {
	if r < Ace || r > King {
		return "?"
	}
	return rankNames[r]
}

// ParseRank converts a rank label ("A", "2".."10", "J", "Q", "K") into a Rank.
func ParseRank(label string) (Rank, error) {
	for r := Ace; r <= King; r++ {
		if rankNames[r] == label {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown rank %q", label)
}

// Card is a single playing card. Identity is the (Suit, Rank) pair; FaceUp is the only
// mutable attribute.
type Card struct {
	Suit   Suit
	Rank   Rank
	FaceUp bool
}

// New returns a face-down card.
func New(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// Value returns the numeric value used by the placement rules.
func (c Card) Value() int {
	return int(c.Rank)
}

// Color returns the card color derived from its suit.
func (c Card) Color() Color {
	return c.Suit.Color()
}

// ID returns a stable identifier such as "10-hearts".
func (c Card) ID() string {
	return c.Rank.String() + "-" + c.Suit.String()
}

// Key returns a dense index in [0, 52) for the card identity.
func (c Card) Key() int {
	return int(c.Suit)*13 + int(c.Rank) - 1
}

// SameIdentity reports whether two cards are the same physical card, ignoring orientation.
func (c Card) SameIdentity(other Card) bool {
	return c.Suit == other.Suit && c.Rank == other.Rank
}

func (c Card) String() string {
	return c.Rank.String() + c.Suit.Symbol()
}

// ParseID is the inverse of Card.ID. The returned card is face-down.
func ParseID(id string) (Card, error) {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] != '-' {
			continue
		}
		rank, err := ParseRank(id[:i])
		if err != nil {
			return Card{}, err
		}
		suit, err := ParseSuit(id[i+1:])
		if err != nil {
			return Card{}, err
		}
		return New(suit, rank), nil
	}
	return Card{}, fmt.Errorf("malformed card id %q", id)
}
