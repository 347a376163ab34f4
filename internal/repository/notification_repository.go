package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskflow/internal/model"
)

// NotificationRepository handles persistence for reminder notifications.
//
// State transitions that must be exclusive (claiming, delivering, failing)
// are compare-and-set updates: the WHERE clause names the expected state and
// claim owner, and RowsAffected tells the caller whether it won. Two
// dispatcher instances can therefore never both own the same row.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id uint) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// ListDue returns pending notifications whose fire time has passed, oldest
// first.
func (r *NotificationRepository) ListDue(ctx context.Context, before time.Time, limit int) ([]model.Notification, error) {
	var due []model.Notification
	q := r.db.WithContext(ctx).
		Where("state = ? AND fire_at <= ?", model.NotificationPending, before).
		Order("fire_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&due).Error; err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}
	return due, nil
}

// ReclaimExpired releases in_flight claims whose expiry has passed, e.g.
// after a dispatcher crash, making the rows eligible again.
func (r *NotificationRepository) ReclaimExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("state = ? AND claim_expires_at <= ?", model.NotificationInFlight, now).
		Updates(map[string]interface{}{
			"state":            model.NotificationPending,
			"claimed_by":       "",
			"claim_expires_at": nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("reclaim expired claims: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Claim atomically moves a pending notification to in_flight on behalf of
// owner. Returns false if another instance claimed it first.
func (r *NotificationRepository) Claim(ctx context.Context, id uint, owner string, expiry time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND state = ?", id, model.NotificationPending).
		Updates(map[string]interface{}{
			"state":            model.NotificationInFlight,
			"claimed_by":       owner,
			"claim_expires_at": expiry,
		})
	if res.Error != nil {
		return false, fmt.Errorf("claim notification: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Release puts a claimed notification back to pending without recording an
// attempt (used when delivery is deferred, not failed).
func (r *NotificationRepository) Release(ctx context.Context, id uint, owner string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND state = ? AND claimed_by = ?", id, model.NotificationInFlight, owner).
		Updates(map[string]interface{}{
			"state":            model.NotificationPending,
			"claimed_by":       "",
			"claim_expires_at": nil,
		})
	if res.Error != nil {
		return false, fmt.Errorf("release notification: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkDelivered finalizes a successful delivery. The CAS on claimed_by means
// a row suppressed mid-flight stays suppressed.
func (r *NotificationRepository) MarkDelivered(ctx context.Context, id uint, owner string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND state = ? AND claimed_by = ?", id, model.NotificationInFlight, owner).
		Updates(map[string]interface{}{
			"state":            model.NotificationDelivered,
			"delivery_count":   gorm.Expr("delivery_count + 1"),
			"last_attempt_at":  at,
			"claimed_by":       "",
			"claim_expires_at": nil,
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark delivered: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed records a failed delivery attempt. Non-terminal failures go back
// to pending for the next tick; terminal ones stay failed for good.
func (r *NotificationRepository) MarkFailed(ctx context.Context, id uint, owner string, at time.Time, terminal bool) (bool, error) {
	state := model.NotificationPending
	if terminal {
		state = model.NotificationFailed
	}
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND state = ? AND claimed_by = ?", id, model.NotificationInFlight, owner).
		Updates(map[string]interface{}{
			"state":            state,
			"retry_count":      gorm.Expr("retry_count + 1"),
			"last_attempt_at":  at,
			"claimed_by":       "",
			"claim_expires_at": nil,
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkSuppressed retires a notification without delivery. It applies to both
// pending and in_flight rows: an in-flight attempt may still finish, but the
// terminal CAS in MarkDelivered/MarkFailed will lose and the row stays
// suppressed.
func (r *NotificationRepository) MarkSuppressed(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND state IN ?", id, []string{model.NotificationPending, model.NotificationInFlight}).
		Updates(map[string]interface{}{
			"state":            model.NotificationSuppressed,
			"claimed_by":       "",
			"claim_expires_at": nil,
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark suppressed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SuppressActiveForTask retires every active notification of a task. Called
// on reschedule, completion and deletion; suppressed rows are kept for audit.
func (r *NotificationRepository) SuppressActiveForTask(ctx context.Context, taskID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("task_id = ? AND state IN ?", taskID, []string{model.NotificationPending, model.NotificationInFlight}).
		Updates(map[string]interface{}{
			"state":            model.NotificationSuppressed,
			"claimed_by":       "",
			"claim_expires_at": nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("suppress notifications for task %d: %w", taskID, res.Error)
	}
	return res.RowsAffected, nil
}

// FindActiveForTask returns the task's single pending or in_flight
// notification, or nil when there is none.
func (r *NotificationRepository) FindActiveForTask(ctx context.Context, taskID uint) (*model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND state IN ?", taskID, []string{model.NotificationPending, model.NotificationInFlight}).
		First(&n).Error
	switch {
	case err == nil:
		return &n, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("find active notification: %w", err)
	}
}

// DeliveredSince reports whether the task already had a delivery after the
// given instant. Rate-limit state lives here, not in dispatcher memory, so
// concurrent instances share it.
func (r *NotificationRepository) DeliveredSince(ctx context.Context, taskID uint, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("task_id = ? AND state = ? AND last_attempt_at > ?", taskID, model.NotificationDelivered, since).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check delivered since: %w", err)
	}
	return count > 0, nil
}

// ListForTask returns all notifications of a task, newest first. Used for
// audit inspection.
func (r *NotificationRepository) ListForTask(ctx context.Context, taskID uint) ([]model.Notification, error) {
	var out []model.Notification
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at DESC, id DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list notifications for task: %w", err)
	}
	return out, nil
}

// PruneTerminal deletes terminal rows (delivered, suppressed, failed) last
// touched before the cutoff. Active rows are never pruned.
func (r *NotificationRepository) PruneTerminal(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("state IN ? AND updated_at < ?",
			[]string{model.NotificationDelivered, model.NotificationSuppressed, model.NotificationFailed}, before).
		Delete(&model.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}
