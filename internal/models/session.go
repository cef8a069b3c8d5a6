package models

import (
	"time"
)

// Session contains data about an authenticated API session. Sessions are carried by signed tokens - the server only
// remembers sessions that have been ended before their expiry.
type Session struct {
	// The session ID (the ID of the token that identifies this session)
	ID string
	// The ID of the user that has logged-in for this session
	UserID string
	// The role the user had when the session was created
	Role string
	// When will the session expire?
	ExpiresAt time.Time
}

// Expired checks if the session has already expired
func (s *Session) Expired() bool {
	return s.ExpiresAt.Before(time.Now())
}
