package receipt

import (
	"sync"

	"github.com/zombor/receipt-insights/internal/scanning"
)

// maxNotifications bounds the undelivered notifications kept per session
const maxNotifications = 20

// Session holds the live state of one signed-in user: at most one receipt
// record, the analyzing flag, the selected filename and pending notifications
type Session struct {
	mu            sync.Mutex
	userID        string
	record        *scanning.ReceiptRecord
	analyzing     bool
	selectedFile  string
	notifications []Notification
}

// NewSession creates an empty session for a user
func NewSession(userID string) *Session {
	return &Session{userID: userID}
}

// UserID returns the owner of the session
func (s *Session) UserID() string {
	return s.userID
}

// Begin marks the session as analyzing and records the selected file.
// It returns false if an extraction is already running.
func (s *Session) Begin(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analyzing {
		return false
	}
	s.analyzing = true
	s.selectedFile = filename
	return true
}

// End clears the analyzing flag
func (s *Session) End() {
	s.mu.Lock()
	s.analyzing = false
	s.mu.Unlock()
}

// Analyzing reports whether an extraction is in progress
func (s *Session) Analyzing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzing
}

// Replace swaps in a new record. The previous record is discarded, never merged.
func (s *Session) Replace(record *scanning.ReceiptRecord) {
	if record == nil {
		return
	}
	s.mu.Lock()
	s.record = record
	s.mu.Unlock()
}

// Record returns the current record, or nil if nothing has been extracted yet
func (s *Session) Record() *scanning.ReceiptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// Snapshot returns the record and analyzing flag under one lock
func (s *Session) Snapshot() (*scanning.ReceiptRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record, s.analyzing
}

// SelectedFile returns the filename shown next to the upload area
func (s *Session) SelectedFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedFile
}

// ClearSelection forgets the displayed filename. It is refused while analyzing.
func (s *Session) ClearSelection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analyzing {
		return false
	}
	s.selectedFile = ""
	return true
}

// push queues a notification, dropping the oldest once the queue is full
func (s *Session) push(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}
}

// TakeNotifications returns and clears pending notifications
func (s *Session) TakeNotifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.notifications
	s.notifications = nil
	if pending == nil {
		pending = []Notification{}
	}
	return pending
}

// Sessions is the per-user session registry
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessions creates an empty registry
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*Session)}
}

// Get returns the user's session, creating it on first use
func (r *Sessions) Get(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok {
		s = NewSession(userID)
		r.sessions[userID] = s
	}
	return s
}
