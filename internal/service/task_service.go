package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title             string
	Description       string
	Category          string
	Priority          string
	DueDate           *time.Time
	RecurrencePattern string
	ReminderOffset    *time.Duration
}

// TaskService is the entry point the surrounding CRUD/API layer calls into.
// It validates writes that touch scheduling fields, triggers successor
// creation on completion, keeps reminders in sync and records audit events.
type TaskService struct {
	tasks      *repository.TaskRepository
	users      *repository.UserRepository
	categories *repository.CategoryRepository
	events     *repository.EventRepository
	recurring  *RecurringService
	reminders  *ReminderService
	log        zerolog.Logger
}

func NewTaskService(
	tasks *repository.TaskRepository,
	users *repository.UserRepository,
	categories *repository.CategoryRepository,
	events *repository.EventRepository,
	recurring *RecurringService,
	reminders *ReminderService,
	log zerolog.Logger,
) *TaskService {
	return &TaskService{
		tasks:      tasks,
		users:      users,
		categories: categories,
		events:     events,
		recurring:  recurring,
		reminders:  reminders,
		log:        log.With().Str("component", "task").Logger(),
	}
}

// RegisterUser finds or creates the task owner from their Telegram identity
// and refreshes the profile fields on every call.
func (s *TaskService) RegisterUser(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error) {
	return s.users.UpsertFromTelegram(ctx, telegramID, firstName, lastName, username)
}

// CreateTask validates and persists a new task and schedules its reminder.
// now anchors the reminder fire-time clamp, keeping the write deterministic.
func (s *TaskService) CreateTask(ctx context.Context, user *model.User, input TaskInput, now time.Time) (*model.Task, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}

	var categoryID *uint
	if input.Category != "" {
		category, err := s.categories.GetOrCreate(ctx, user.ID, input.Category)
		if err != nil {
			return nil, err
		}
		if category != nil {
			categoryID = &category.ID
		}
	}

	task := model.Task{
		UserID:            user.ID,
		CategoryID:        categoryID,
		Title:             input.Title,
		Description:       input.Description,
		Priority:          normalizePriority(input.Priority),
		Status:            model.TaskStatusPending,
		DueDate:           input.DueDate,
		RecurrencePattern: input.RecurrencePattern,
		ReminderOffset:    input.ReminderOffset,
	}

	if err := s.recurring.ValidateOnCreate(&task); err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	s.recordEvent(ctx, task.ID, task.UserID, model.EventTaskCreated, task.Title)

	if _, err := s.reminders.Schedule(ctx, &task, now); err != nil {
		// The task itself is saved; a missing reminder is degraded, not broken.
		s.log.Warn().Err(err).Uint("task_id", task.ID).Msg("task.reminder_schedule_failed")
	}

	return &task, nil
}

// CompleteTask marks a task as done and returns the successor instance when
// the task recurs. A duplicate completion fails with ErrAlreadyCompleted.
func (s *TaskService) CompleteTask(ctx context.Context, user *model.User, taskID uint, completedAt time.Time) (*model.Task, *model.Task, error) {
	task, err := s.tasks.FindByUser(ctx, user.ID, taskID)
	if err != nil {
		return nil, nil, err
	}

	successor, err := s.recurring.OnComplete(ctx, task, completedAt)
	switch {
	case err == nil:
	case errors.Is(err, ErrRecurrenceGenerationFailed):
		// Completion stands; the missed successor is logged for operational
		// retry and never blocks the user's action.
		s.log.Warn().Err(err).Uint("task_id", task.ID).Msg("task.successor_missing")
		successor = nil
	default:
		return nil, nil, err
	}

	s.recordEvent(ctx, task.ID, task.UserID, model.EventTaskCompleted, "")

	if err := s.reminders.Cancel(ctx, task.ID); err != nil {
		s.log.Warn().Err(err).Uint("task_id", task.ID).Msg("task.reminder_cancel_failed")
	}

	if successor != nil {
		s.recordEvent(ctx, successor.ID, successor.UserID, model.EventTaskCreated, successor.Title)
		if _, err := s.reminders.Schedule(ctx, successor, completedAt); err != nil {
			s.log.Warn().Err(err).Uint("task_id", successor.ID).Msg("task.reminder_schedule_failed")
		}
	}

	return task, successor, nil
}

// UpdateSchedule applies new due date, reminder offset and recurrence values
// to a pending task and supersedes its reminder. Nil due date and nil offset
// clear the respective field; an empty pattern removes recurrence. A completed
// task is immutable and rejects the update.
func (s *TaskService) UpdateSchedule(ctx context.Context, user *model.User, taskID uint, dueDate *time.Time, offset *time.Duration, pattern string, now time.Time) (*model.Task, error) {
	task, err := s.tasks.FindByUser(ctx, user.ID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Completed() {
		return nil, ErrAlreadyCompleted
	}

	task.DueDate = dueDate
	task.ReminderOffset = offset
	task.RecurrencePattern = pattern
	if err := s.recurring.ValidateOnCreate(task); err != nil {
		return nil, err
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	s.recordEvent(ctx, task.ID, task.UserID, model.EventTaskRescheduled, "")

	if _, err := s.reminders.Reschedule(ctx, task, now); err != nil {
		s.log.Warn().Err(err).Uint("task_id", task.ID).Msg("task.reminder_reschedule_failed")
	}

	return task, nil
}

// DeleteTask removes a task and cascade-suppresses its pending notifications.
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID uint) error {
	task, err := s.tasks.FindByUser(ctx, user.ID, taskID)
	if err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, user.ID, taskID); err != nil {
		return err
	}
	s.recordEvent(ctx, taskID, task.UserID, model.EventTaskDeleted, task.Title)

	return s.reminders.Cancel(ctx, taskID)
}

// GetTask returns a task owned by the user.
func (s *TaskService) GetTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	return s.tasks.FindByUser(ctx, user.ID, taskID)
}

// ListPending returns the user's open tasks.
func (s *TaskService) ListPending(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.tasks.ListPending(ctx, user.ID)
}

func (s *TaskService) recordEvent(ctx context.Context, taskID, userID uint, action, detail string) {
	ev := &model.TaskEvent{TaskID: taskID, UserID: userID, Action: action, Detail: detail}
	if err := s.events.Append(ctx, ev); err != nil {
		s.log.Warn().Err(err).Uint("task_id", taskID).Str("action", action).
			Msg("task.audit_append_failed")
	}
}

func normalizePriority(p string) string {
	switch p {
	case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
		return p
	default:
		return model.PriorityNone
	}
}
