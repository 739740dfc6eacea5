package session

import (
	"sync"

	"github.com/climatenet/climatebot/internal/models"
)

// Mode is the comparison workflow state of a chat.
type Mode string

const (
	// ModeInactive means no comparison is in progress.
	ModeInactive Mode = "inactive"
	// ModeCollecting means the chat is picking devices for a comparison.
	ModeCollecting Mode = "collecting"
)

// Session is the per-chat conversation state. Selected keeps insertion
// order; duplicate selections are allowed. Current is the last device
// chosen outside the comparison flow and survives comparison resets.
type Session struct {
	Mode            Mode
	Selected        []models.Device
	PendingLocation string
	Rendering       bool
	Current         *models.Device
}

// ResetCompare clears all comparison state in one step, leaving the
// single-device selection untouched.
func (s *Session) ResetCompare() {
	s.Mode = ModeInactive
	s.Selected = nil
	s.PendingLocation = ""
	s.Rendering = false
}

// Ready reports whether the session has enough devices to compare.
func (s *Session) Ready() bool {
	return len(s.Selected) >= 2
}

// Store holds sessions keyed by chat identity. Sessions for different
// chats are independent; access to the map is guarded so the store can be
// shared between the dispatcher and any background work.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns the session for a chat, creating it if needed.
func (st *Store) Get(chatID int64) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[chatID]
	if !ok {
		s = &Session{Mode: ModeInactive}
		st.sessions[chatID] = s
	}
	return s
}

// Peek returns the session for a chat without creating one.
func (st *Store) Peek(chatID int64) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[chatID]
	return s, ok
}

// Clear removes the whole session object for a chat. There is no partial
// clear: either the session exists in full or not at all.
func (st *Store) Clear(chatID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, chatID)
}
