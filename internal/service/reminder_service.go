package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// ReminderService computes and persists reminder fire times. It owns the
// per-task invariant: at most one pending/in_flight notification per task,
// superseded rows become suppressed and are kept for audit.
type ReminderService struct {
	notifications *repository.NotificationRepository
	log           zerolog.Logger
}

func NewReminderService(notifications *repository.NotificationRepository, log zerolog.Logger) *ReminderService {
	return &ReminderService{
		notifications: notifications,
		log:           log.With().Str("component", "reminder").Logger(),
	}
}

// Schedule creates a pending notification for the task, or none when the
// task has no due date or no reminder offset.
//
// A fire time already in the past is clamped to now rather than dropped; the
// dispatcher's grace window decides whether it is still worth delivering.
func (s *ReminderService) Schedule(ctx context.Context, task *model.Task, now time.Time) (*model.Notification, error) {
	if task.DueDate == nil || task.ReminderOffset == nil {
		return nil, nil
	}

	fireAt := task.DueDate.Add(-*task.ReminderOffset)
	if fireAt.Before(now) {
		fireAt = now
	}

	n := &model.Notification{
		TaskID: task.ID,
		UserID: task.UserID,
		FireAt: fireAt,
		State:  model.NotificationPending,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}

	s.log.Debug().Uint("task_id", task.ID).Uint("notification_id", n.ID).
		Time("fire_at", fireAt).Msg("reminder.scheduled")
	return n, nil
}

// Reschedule supersedes the task's active notification after a change to its
// due date, reminder offset or recurrence. The prior notification is
// suppressed first; a new one is created unless the reminder was removed or
// the task is already completed.
func (s *ReminderService) Reschedule(ctx context.Context, task *model.Task, now time.Time) (*model.Notification, error) {
	suppressed, err := s.notifications.SuppressActiveForTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if suppressed > 0 {
		s.log.Debug().Uint("task_id", task.ID).Int64("suppressed", suppressed).
			Msg("reminder.superseded")
	}
	if task.Completed() {
		return nil, nil
	}
	return s.Schedule(ctx, task, now)
}

// Cancel suppresses any active notification for the task. Used on completion
// and deletion; an already-claimed in-flight attempt may finish, but the row
// is never redelivered afterwards.
func (s *ReminderService) Cancel(ctx context.Context, taskID uint) error {
	suppressed, err := s.notifications.SuppressActiveForTask(ctx, taskID)
	if err != nil {
		return err
	}
	if suppressed > 0 {
		s.log.Debug().Uint("task_id", taskID).Int64("suppressed", suppressed).
			Msg("reminder.cancelled")
	}
	return nil
}
