package game

import (
	"context"
	"sync"
	"time"

	"github.com/magefree/solitaire-server-go/internal/game/cards"
	"github.com/magefree/solitaire-server-go/internal/game/pile"
)

// seededState deals a reproducible game for seed.
func seededState(seed string) *State {
	deck := cards.NewDeck()
	cards.Shuffle(deck, cards.NewSeededRNG(seed))
	return NewState(deck)
}

func up(suit cards.Suit, rank cards.Rank) cards.Card {
	c := cards.New(suit, rank)
	c.FaceUp = true
	return c
}

func down(suit cards.Suit, rank cards.Rank) cards.Card {
	return cards.New(suit, rank)
}

// fullState places every card not listed in used onto the stock, face-down, so a hand-built
// position still holds all 52 cards.
func fullState(s *State) *State {
	var used [cards.DeckSize]bool
	s.eachPile(func(_ pile.Ref, p pile.Pile) {
		for _, c := range p {
			used[c.Key()] = true
		}
	})
	for _, c := range cards.NewDeck() {
		if !used[c.Key()] {
			s.Stock.Push(c)
		}
	}
	return s
}

// wonState builds a position with all thirteen cards of each suit on its foundation.
func wonState() *State {
	s := &State{}
	for i, suit := range cards.Suits {
		for r := cards.Ace; r <= cards.King; r++ {
			s.Foundations[i].Push(up(suit, r))
		}
	}
	return s
}

// almostWonState is wonState with the King of diamonds moved to the first column.
func almostWonState(score int) *State {
	s := wonState()
	king, _ := s.Foundations[3].Pop()
	s.Tableau[0].Push(king)
	s.Score = score
	return s
}

type memoryStore struct {
	mu     sync.Mutex
	score  int
	reads  int
	writes int
	err    error
}

func (m *memoryStore) HighScore(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.score, m.err
}

func (m *memoryStore) SetHighScore(_ context.Context, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.score = score
	m.writes++
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) handle(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

func (r *recorder) last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notes[len(r.notes)-1]
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notes))
	for i, n := range r.notes {
		out[i] = n.Type
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = nil
}
