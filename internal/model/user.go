package model

import "time"

// User is an account that can own tasks and call task methods.
type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	TelegramID   *int64 `gorm:"uniqueIndex"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
