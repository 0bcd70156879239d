package hint

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/magefree/solitaire-server-go/internal/game"
	"go.uber.org/zap"
)

// Fallback messages shown instead of an oracle answer.
const (
	FallbackNoAnswer   = "Could not get a hint."
	FallbackConnection = "There was a problem contacting the solitaire expert. Check your connection and try again."
	FallbackDisabled   = "Hints are not available on this server."
)

// DefaultTimeout bounds a single hint request.
const DefaultTimeout = 15 * time.Second

// Service asks the oracle for hints on behalf of sessions. It never fails: every oracle error
// becomes one of the fallback messages.
type Service struct {
	oracle  Oracle
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewService creates a hint service. A nil oracle answers every request with FallbackDisabled.
func NewService(oracle Oracle, timeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		oracle:  oracle,
		timeout: timeout,
		logger:  logger,
	}
}

// Enabled reports whether an oracle is configured.
func (s *Service) Enabled() bool {
	return s.oracle != nil
}

// Hint returns the oracle's suggestion for prompt, or a fallback message.
func (s *Service) Hint(ctx context.Context, prompt string) string {
	if s.oracle == nil {
		return FallbackDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.oracle.Suggest(ctx, prompt)
	switch {
	case err == nil:
		s.logger.Debug("hint received", zap.Duration("latency", time.Since(start)), zap.Int("length", len(text)))
		return text
	case errors.Is(err, ErrEmptyAnswer):
		s.logger.Warn("hint oracle returned no answer", zap.Duration("latency", time.Since(start)))
		return FallbackNoAnswer
	case errors.Is(err, ErrDisabled):
		return FallbackDisabled
	default:
		s.logger.Warn("hint oracle failed", zap.Duration("latency", time.Since(start)), zap.Error(err))
		return FallbackConnection
	}
}

// Request runs a hint round trip for sess synchronously and returns the text and whether it
// was delivered to the session (false when the game was reset meanwhile).
func (s *Service) Request(ctx context.Context, sess *game.Session) (string, bool, error) {
	req, err := sess.BeginHint()
	if err != nil {
		return "", false, err
	}
	text := s.Hint(ctx, req.Prompt)
	return text, sess.FinishHint(req.Generation, text), nil
}

// RequestAsync starts a hint round trip for sess and returns once the request is registered.
// The answer reaches the client through the session's HINT notification. ctx must outlive the
// caller's request; cancelling it abandons the oracle call.
func (s *Service) RequestAsync(ctx context.Context, sess *game.Session) error {
	req, err := sess.BeginHint()
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		text := s.Hint(ctx, req.Prompt)
		if !sess.FinishHint(req.Generation, text) {
			s.logger.Debug("hint arrived after the game was reset", zap.String("session_id", sess.ID))
		}
	}()
	return nil
}

// Wait blocks until every asynchronous request has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
