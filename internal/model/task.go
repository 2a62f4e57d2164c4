package model

import "time"

// Task is a single to-do item owned by one user.
type Task struct {
	ID        string `gorm:"primaryKey;size:36"`
	Text      string `gorm:"not null"`
	CreatedAt time.Time
	UserID    string `gorm:"index;size:36;not null"`
	IsChecked bool   `gorm:"default:false"`
}
