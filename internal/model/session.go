package model

import "time"

// Session represents one issued bearer token
type Session struct {
	Token     string    `json:"token"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsValid checks if the session is still usable
func (s *Session) IsValid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
