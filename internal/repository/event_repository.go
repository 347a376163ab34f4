package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskflow/internal/model"
)

// EventRepository appends to the per-task audit log.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(ctx context.Context, ev *model.TaskEvent) error {
	if err := r.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("append task event: %w", err)
	}
	return nil
}

func (r *EventRepository) ListByTask(ctx context.Context, taskID uint) ([]model.TaskEvent, error) {
	var events []model.TaskEvent
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list task events: %w", err)
	}
	return events, nil
}
