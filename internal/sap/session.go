package sap

import "sync"

// Session is the credential pair issued by the Service Layer at login.
type Session struct {
	ID      string
	RouteID string
}

// Empty reports whether the session carries no credentials.
func (s Session) Empty() bool {
	return s.ID == ""
}

// Cookie renders the session as the Cookie header the Service Layer expects.
func (s Session) Cookie() string {
	cookie := "B1SESSION=" + s.ID
	if s.RouteID != "" {
		cookie += "; ROUTEID=" + s.RouteID
	}
	return cookie
}

// SessionStore holds the process-wide session shared by all concurrent
// invoicing attempts. Readers take a snapshot; a 401 observed by any
// attempt invalidates the store for everyone.
type SessionStore struct {
	mu      sync.RWMutex
	current Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Current returns a snapshot of the stored session.
func (s *SessionStore) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set replaces the stored session.
func (s *SessionStore) Set(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess
}

// Invalidate resets the store to empty.
func (s *SessionStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Session{}
}
