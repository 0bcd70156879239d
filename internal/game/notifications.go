package game

import "time"

// Notification types emitted by a Session.
const (
	NotifyGameState  = "GAME_STATE"
	NotifyModeSelect = "MODE_SELECT"
	NotifyWin        = "WIN"
	NotifyHint       = "HINT"
	NotifyClosed     = "SESSION_CLOSED"
)

// Notification tells a renderer that a session changed. View is the state after the change.
type Notification struct {
	Type      string
	SessionID string
	Timestamp time.Time
	View      *StateView
	Data      map[string]interface{}
}

// NotificationHandler receives session notifications. It is called outside the session lock,
// in the order the changes happened, and must not block or call back into the session.
type NotificationHandler func(notification Notification)
