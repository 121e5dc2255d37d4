package auth

import (
	"sync"
)

// LogoutReason says why a session ended.
type LogoutReason string

const (
	// ReasonExpired means the server answered 498 to some request.
	ReasonExpired LogoutReason = "expired"
	// ReasonSignedOut means the user logged out.
	ReasonSignedOut LogoutReason = "signed_out"
)

// Session is the explicit authentication context handed to the API client.
// It holds the bearer token and a list of logout observers. Ending the
// session notifies observers exactly once, however many in-flight requests
// report the expiry.
type Session struct {
	mu        sync.RWMutex
	token     string
	ended     bool
	reason    LogoutReason
	observers []func(LogoutReason)
}

// NewSession returns an active session for token.
func NewSession(token string) *Session {
	return &Session{token: token}
}

// Token returns the bearer token, or "" once the session has ended.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Active reports whether the session still holds a token.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.ended && s.token != ""
}

// EndReason returns why the session ended, or "" while it is active.
func (s *Session) EndReason() LogoutReason {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// OnLogout registers fn to run when the session ends.
func (s *Session) OnLogout(fn func(LogoutReason)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Expire ends the session because the server rejected the token.
// It returns true only for the call that actually ended the session.
func (s *Session) Expire() bool {
	return s.end(ReasonExpired)
}

// Logout ends the session at the user's request.
func (s *Session) Logout() bool {
	return s.end(ReasonSignedOut)
}

func (s *Session) end(reason LogoutReason) bool {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return false
	}
	s.ended = true
	s.reason = reason
	s.token = ""
	observers := append([]func(LogoutReason){}, s.observers...)
	s.mu.Unlock()

	// Observers run outside the lock so they may read the session.
	for _, fn := range observers {
		fn(reason)
	}
	return true
}
