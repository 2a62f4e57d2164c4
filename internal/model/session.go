package model

import "time"

// Session is a login token issued to a user.
type Session struct {
	Token     string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"index;size:36;not null"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
