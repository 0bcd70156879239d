package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ManagerOptions configure a Manager.
type ManagerOptions struct {
	// LeasePeriod is how long an idle session survives. Zero disables expiry.
	LeasePeriod time.Duration
	// MaxSessions caps concurrent sessions. Zero means unlimited.
	MaxSessions int
	// Store persists the high score shared by all sessions. Nil keeps it in the session only.
	Store   HighScoreStore
	Session SessionOptions
}

// Manager owns the live sessions.
type Manager struct {
	opts   ManagerOptions
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	handlerMu sync.RWMutex
	handler   NotificationHandler
}

// NewManager creates a session manager.
func NewManager(opts ManagerOptions, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Session.Now == nil {
		opts.Session.Now = time.Now
	}
	return &Manager{
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// SetNotificationHandler sets the handler that receives notifications from every session.
func (m *Manager) SetNotificationHandler(handler NotificationHandler) {
	m.handlerMu.Lock()
	defer m.handlerMu.Unlock()
	m.handler = handler
}

func (m *Manager) dispatch(notification Notification) {
	m.handlerMu.RLock()
	handler := m.handler
	m.handlerMu.RUnlock()

	if handler != nil {
		handler(notification)
	}
}

// Create opens a new session in mode selection.
func (m *Manager) Create(ctx context.Context, host string) (*Session, error) {
	if m.full() {
		m.logger.Warn("session limit reached", zap.Int("max_sessions", m.opts.MaxSessions))
		return nil, ErrTooManySessions
	}

	// The high score read happens outside the lock; capacity is checked again before insert.
	sess := NewSession(ctx, uuid.NewString(), host, m.opts.Store, m.opts.Session, m.logger)
	sess.SetNotificationHandler(m.dispatch)

	m.mu.Lock()
	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		m.logger.Warn("session limit reached", zap.Int("max_sessions", m.opts.MaxSessions))
		return nil, ErrTooManySessions
	}
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.logger.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("host", host),
		zap.Int("high_score", sess.HighScore()),
	)
	return sess, nil
}

func (m *Manager) full() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions
}

// Get returns a session by id.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[sessionID]
	return sess, ok
}

// Remove closes and forgets a session. Unknown ids are ignored.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if !ok {
		return
	}
	sess.Close()
	m.logger.Info("session removed", zap.String("session_id", sessionID))
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// PlayingCount returns the number of sessions with a game in progress.
func (m *Manager) PlayingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, sess := range m.sessions {
		if sess.Phase() == PhasePlaying {
			count++
		}
	}
	return count
}

// ExpireIdle removes sessions idle for longer than the lease period as of now and returns how
// many were removed.
func (m *Manager) ExpireIdle(now time.Time) int {
	if m.opts.LeasePeriod <= 0 {
		return 0
	}

	m.mu.Lock()
	expired := make([]*Session, 0)
	for id, sess := range m.sessions {
		if now.Sub(sess.LastActivity()) > m.opts.LeasePeriod {
			expired = append(expired, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
		m.logger.Info("session expired",
			zap.String("session_id", sess.ID),
			zap.Time("last_activity", sess.LastActivity()),
		)
	}
	return len(expired)
}

// CleanupExpiredSessions expires idle sessions until ctx is cancelled.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) {
	if m.opts.LeasePeriod <= 0 {
		return
	}
	interval := m.opts.LeasePeriod / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.ExpireIdle(m.opts.Session.Now()); n > 0 {
				m.logger.Debug("expired sessions", zap.Int("count", n), zap.Int("active", m.ActiveCount()))
			}
		}
	}
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	m.logger.Info("all sessions closed", zap.Int("count", len(sessions)))
}
