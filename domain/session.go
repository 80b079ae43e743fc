package domain

import "time"

// Session is what the chat room keeps from a successful sign-in.
type Session struct {
	UserID      string
	PhotoURL    string
	DisplayName string
	ExpiresAt   time.Time
}

func (s Session) IsZero() bool {
	return s.UserID == ""
}
