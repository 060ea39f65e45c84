package receipt

import "log/slog"

// Notification is a user-visible message
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive,omitempty"`
}

// Notifier delivers notifications to a user. Delivery is fire-and-forget.
type Notifier interface {
	Notify(session *Session, n Notification)
}

// SessionNotifier queues notifications on the session for the page to pick up
type SessionNotifier struct{}

// Notify queues the notification and logs it
func (SessionNotifier) Notify(session *Session, n Notification) {
	slog.Info("Notification", "user", session.UserID(), "title", n.Title, "destructive", n.Destructive)
	session.push(n)
}
