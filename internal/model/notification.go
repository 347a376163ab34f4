package model

import "time"

// Notification states. pending and in_flight are "active": at most one active
// notification exists per task at any time. delivered, suppressed and failed
// are terminal; a failing row below the retry cap goes back to pending rather
// than to failed.
const (
	NotificationPending    = "pending"
	NotificationInFlight   = "in_flight"
	NotificationDelivered  = "delivered"
	NotificationSuppressed = "suppressed"
	NotificationFailed     = "failed"
)

// Notification is a scheduled due-date reminder for a task.
type Notification struct {
	ID     uint      `gorm:"primaryKey"`
	TaskID uint      `gorm:"index"`
	UserID uint      `gorm:"index"`
	FireAt time.Time `gorm:"index"`
	State  string    `gorm:"index;default:pending"`

	DeliveryCount int
	RetryCount    int
	LastAttemptAt *time.Time

	// ClaimedBy identifies the dispatcher instance holding the in_flight
	// claim; a claim past ClaimExpiresAt is abandoned and reclaimable.
	ClaimedBy      string
	ClaimExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the notification still occupies the per-task slot.
func (n *Notification) Active() bool {
	return n.State == NotificationPending || n.State == NotificationInFlight
}
