package model

import "time"

// Audit actions recorded per task.
const (
	EventTaskCreated     = "created"
	EventTaskCompleted   = "completed"
	EventTaskRescheduled = "rescheduled"
	EventTaskDeleted     = "deleted"
)

// TaskEvent is an append-only audit record of task lifecycle actions.
type TaskEvent struct {
	ID        uint `gorm:"primaryKey"`
	TaskID    uint `gorm:"index"`
	UserID    uint `gorm:"index"`
	Action    string
	Detail    string
	CreatedAt time.Time
}
