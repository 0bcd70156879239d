package game

import (
	"errors"
	"fmt"

	"github.com/magefree/solitaire-server-go/internal/game/rules"
)

var (
	// ErrMoveRejected is returned (wrapped) for every move that fails validation.
	// A rejected move leaves the game untouched.
	ErrMoveRejected      = errors.New("move rejected")
	ErrNoActiveGame      = errors.New("no active game")
	ErrInvalidDrawMode   = errors.New("draw mode must be 1 or 3")
	ErrNoModeSelected    = errors.New("no draw mode selected")
	ErrNoDrag            = errors.New("no drag in progress")
	ErrHintPending       = errors.New("hint request already pending")
	ErrSessionNotFound   = errors.New("session not found")
	ErrTooManySessions   = errors.New("too many active sessions")
	ErrInvalidReplayStep = errors.New("replay cursor must be start, next, previous or skip")
)

// RejectedError carries the reason a move was refused.
type RejectedError struct {
	Move   Move
	Result rules.LegalityResult
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrMoveRejected, e.Result.Reason, e.Move)
}

func (e *RejectedError) Unwrap() error {
	return ErrMoveRejected
}

func reject(m Move, reason string) error {
	return &RejectedError{Move: m, Result: rules.LegalityResult{Legal: false, Reason: reason}}
}
