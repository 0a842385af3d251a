package models

import "time"

// StoredSession is the persisted login: the bearer token and who it belongs to.
type StoredSession struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsExpired checks if the session has expired. A zero ExpiresAt never expires.
func (s *StoredSession) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
