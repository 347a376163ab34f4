package model

import "time"

// Task status values. A completed recurring task never reopens: completion
// spawns a fresh pending successor row instead.
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Priority levels carried over to successor instances.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
	PriorityNone   = "none"
)

// Task represents a single item in the planner.
type Task struct {
	ID          uint  `gorm:"primaryKey"`
	UserID      uint  `gorm:"index"`
	CategoryID  *uint `gorm:"index"`
	Title       string
	Description string
	Priority    string `gorm:"default:none"`
	Status      string `gorm:"index;default:pending"`
	DueDate     *time.Time

	// RecurrencePattern is empty for one-shot tasks. When set, DueDate must
	// be set too (enforced at write time).
	RecurrencePattern string `gorm:"index"`

	// ReminderOffset is subtracted from DueDate to compute the reminder
	// fire time. Nil means no reminder.
	ReminderOffset *time.Duration

	// ParentRecurringID links a successor to its immediate predecessor.
	// Due dates are strictly increasing along the chain.
	ParentRecurringID *uint `gorm:"index"`

	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Recurring reports whether completing the task should spawn a successor.
func (t *Task) Recurring() bool { return t.RecurrencePattern != "" }

// Completed reports whether the task has reached its terminal status.
func (t *Task) Completed() bool { return t.Status == TaskStatusCompleted }
