package game

import (
	"fmt"
	"strings"

	"github.com/magefree/solitaire-server-go/internal/game/cards"
	"github.com/magefree/solitaire-server-go/internal/game/pile"
)

// TargetKind discriminates a drop target.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetTableau
	TargetFoundation
)

func (k TargetKind) String() string {
	switch k {
	case TargetTableau:
		return "tableau"
	case TargetFoundation:
		return "foundation"
	default:
		return "none"
	}
}

// Target is the result of resolving a pointer release: a tableau column, a foundation, or
// nothing. The zero value is NoTarget.
type Target struct {
	kind  TargetKind
	index int
}

func NoTarget() Target { return Target{} }

func TableauTarget(index int) Target { return Target{kind: TargetTableau, index: index} }

func FoundationTarget(index int) Target { return Target{kind: TargetFoundation, index: index} }

func (t Target) Kind() TargetKind { return t.kind }

func (t Target) Index() int { return t.index }

func (t Target) IsNone() bool { return t.kind == TargetNone }

// Ref converts the target to the pile it names. It reports false for NoTarget.
func (t Target) Ref() (pile.Ref, bool) {
	switch t.kind {
	case TargetTableau:
		return pile.Tableau(t.index), true
	case TargetFoundation:
		return pile.Foundation(t.index), true
	default:
		return pile.Ref{}, false
	}
}

func (t Target) String() string {
	if t.kind == TargetNone {
		return "none"
	}
	return fmt.Sprintf("%s-%d", t.kind, t.index)
}

// ParseTarget builds a Target from its wire form. An empty kind or "none" yields NoTarget.
func ParseTarget(kind string, index int) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "none":
		return NoTarget(), nil
	case "tableau":
		if index < 0 || index >= cards.Columns {
			return Target{}, fmt.Errorf("tableau index %d out of range", index)
		}
		return TableauTarget(index), nil
	case "foundation":
		if index < 0 || index >= len(cards.Suits) {
			return Target{}, fmt.Errorf("foundation index %d out of range", index)
		}
		return FoundationTarget(index), nil
	default:
		return Target{}, fmt.Errorf("unknown drop target %q", kind)
	}
}

// DragSelection is the run picked up by an in-progress drag.
type DragSelection struct {
	Cards  []cards.Card
	Source pile.Ref
	Index  int
}

// Move returns the move that dropping the selection on target would attempt.
func (d DragSelection) Move(target pile.Ref) Move {
	return Move{Source: d.Source, Index: d.Index, Target: target}
}

// matches reports whether the selection still describes the run at its source in s.
func (d DragSelection) matches(s *State) bool {
	src, err := s.Pile(d.Source)
	if err != nil {
		return false
	}
	run := src.Slice(d.Index)
	if len(run) != len(d.Cards) {
		return false
	}
	for i := range run {
		if !run[i].SameIdentity(d.Cards[i]) {
			return false
		}
	}
	return true
}
