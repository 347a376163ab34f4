package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"taskflow/internal/model"
	"taskflow/internal/recurrence"
	"taskflow/internal/repository"
)

// RecurringService completes tasks and spawns successor instances for
// recurring ones, preserving lineage via ParentRecurringID.
type RecurringService struct {
	tasks *repository.TaskRepository
	log   zerolog.Logger
}

func NewRecurringService(tasks *repository.TaskRepository, log zerolog.Logger) *RecurringService {
	return &RecurringService{tasks: tasks, log: log.With().Str("component", "recurring").Logger()}
}

// ValidateOnCreate rejects invalid recurrence fields at write time.
func (s *RecurringService) ValidateOnCreate(task *model.Task) error {
	if task.RecurrencePattern == "" {
		return nil
	}
	if !recurrence.Valid(task.RecurrencePattern) {
		return fmt.Errorf("%w: %q", recurrence.ErrInvalidPattern, task.RecurrencePattern)
	}
	if task.DueDate == nil {
		return ErrRecurrenceRequiresDueDate
	}
	return nil
}

// OnComplete marks the task completed and, for recurring tasks, creates the
// successor instance.
//
// Completion is a compare-and-set on status: a concurrent duplicate attempt
// gets ErrAlreadyCompleted and no second successor. Successor persistence
// failure is reported as ErrRecurrenceGenerationFailed; by then the
// completion has already been written and must stand.
func (s *RecurringService) OnComplete(ctx context.Context, task *model.Task, completedAt time.Time) (*model.Task, error) {
	ok, err := s.tasks.CompleteIfPending(ctx, task.ID, completedAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyCompleted
	}
	task.Status = model.TaskStatusCompleted
	task.CompletedAt = &completedAt

	if !task.Recurring() {
		return nil, nil
	}

	var anchor time.Time
	if task.DueDate != nil {
		anchor = *task.DueDate
	}
	nextDue, err := recurrence.Next(task.RecurrencePattern, anchor)
	if err != nil {
		s.log.Error().Err(err).Uint("task_id", task.ID).
			Str("pattern", task.RecurrencePattern).
			Msg("recurrence.generation_failed")
		return nil, fmt.Errorf("%w: %v", ErrRecurrenceGenerationFailed, err)
	}

	successor := &model.Task{
		UserID:            task.UserID,
		CategoryID:        task.CategoryID,
		Title:             task.Title,
		Description:       task.Description,
		Priority:          task.Priority,
		Status:            model.TaskStatusPending,
		DueDate:           &nextDue,
		RecurrencePattern: task.RecurrencePattern,
		ReminderOffset:    task.ReminderOffset,
		ParentRecurringID: &task.ID,
	}
	if err := s.tasks.Create(ctx, successor); err != nil {
		s.log.Error().Err(err).Uint("task_id", task.ID).
			Msg("recurrence.generation_failed")
		return nil, fmt.Errorf("%w: %v", ErrRecurrenceGenerationFailed, err)
	}

	s.log.Info().Uint("task_id", task.ID).Uint("successor_id", successor.ID).
		Time("next_due", nextDue).Msg("recurrence.successor_created")
	return successor, nil
}
