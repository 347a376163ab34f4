package model

import "time"

// User owns tasks and receives their reminders. TelegramID is the chat the
// delivery adapter routes notifications to.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
