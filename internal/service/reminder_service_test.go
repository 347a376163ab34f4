package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/internal/service"
	"taskflow/internal/testutil"
)

func newReminderFixture(t *testing.T) (*gorm.DB, *repository.NotificationRepository, *service.ReminderService) {
	t.Helper()
	db := testutil.NewTestDB(t)
	notificationRepo := repository.NewNotificationRepository(db)
	return db, notificationRepo, service.NewReminderService(notificationRepo, zerolog.Nop())
}

func activeCount(t *testing.T, repo *repository.NotificationRepository, taskID uint) int {
	t.Helper()
	all, err := repo.ListForTask(context.Background(), taskID)
	require.NoError(t, err)
	count := 0
	for i := range all {
		if all[i].Active() {
			count++
		}
	}
	return count
}

func TestScheduleComputesFireAtFromOffset(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newReminderFixture(t)

	task := &model.Task{
		ID:             1,
		UserID:         1,
		DueDate:        timePtr(time.Date(2026, time.June, 10, 8, 0, 0, 0, time.UTC)),
		ReminderOffset: durPtr(time.Hour),
	}
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	n, err := svc.Schedule(ctx, task, now)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, model.NotificationPending, n.State)
	assert.True(t, n.FireAt.Equal(time.Date(2026, time.June, 10, 7, 0, 0, 0, time.UTC)), "got %s", n.FireAt)
}

func TestScheduleSkipsTasksWithoutDueDateOrOffset(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newReminderFixture(t)
	now := time.Now()

	n, err := svc.Schedule(ctx, &model.Task{ID: 1, ReminderOffset: durPtr(time.Hour)}, now)
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = svc.Schedule(ctx, &model.Task{ID: 2, DueDate: timePtr(now.Add(time.Hour))}, now)
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestSchedulePastFireTimeClampsToNow(t *testing.T) {
	ctx := context.Background()
	_, _, svc := newReminderFixture(t)

	now := time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)
	task := &model.Task{
		ID:             1,
		UserID:         1,
		DueDate:        timePtr(now.Add(-2 * time.Hour)),
		ReminderOffset: durPtr(time.Hour),
	}

	// Not dropped silently: scheduled at now, the grace window decides later.
	n, err := svc.Schedule(ctx, task, now)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.True(t, n.FireAt.Equal(now), "got %s", n.FireAt)
}

func TestRescheduleKeepsExactlyOneActiveNotification(t *testing.T) {
	ctx := context.Background()
	_, repo, svc := newReminderFixture(t)

	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	task := &model.Task{
		ID:             1,
		UserID:         1,
		Status:         model.TaskStatusPending,
		DueDate:        timePtr(time.Date(2026, time.June, 10, 8, 0, 0, 0, time.UTC)),
		ReminderOffset: durPtr(time.Hour),
	}

	first, err := svc.Schedule(ctx, task, now)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Due date moves; prior reminder must be superseded, not duplicated.
	task.DueDate = timePtr(time.Date(2026, time.June, 12, 8, 0, 0, 0, time.UTC))
	second, err := svc.Reschedule(ctx, task, now)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)

	assert.Equal(t, 1, activeCount(t, repo, task.ID))

	old, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationSuppressed, old.State, "superseded rows are kept for audit")
}

func TestRescheduleWithReminderRemovedLeavesNone(t *testing.T) {
	ctx := context.Background()
	_, repo, svc := newReminderFixture(t)

	now := time.Now()
	task := &model.Task{
		ID:             1,
		UserID:         1,
		Status:         model.TaskStatusPending,
		DueDate:        timePtr(now.Add(48 * time.Hour)),
		ReminderOffset: durPtr(time.Hour),
	}

	_, err := svc.Schedule(ctx, task, now)
	require.NoError(t, err)

	task.ReminderOffset = nil
	n, err := svc.Reschedule(ctx, task, now)
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Equal(t, 0, activeCount(t, repo, task.ID))
}

func TestRescheduleOnCompletedTaskOnlySuppresses(t *testing.T) {
	ctx := context.Background()
	_, repo, svc := newReminderFixture(t)

	now := time.Now()
	task := &model.Task{
		ID:             1,
		UserID:         1,
		Status:         model.TaskStatusPending,
		DueDate:        timePtr(now.Add(48 * time.Hour)),
		ReminderOffset: durPtr(time.Hour),
	}
	_, err := svc.Schedule(ctx, task, now)
	require.NoError(t, err)

	task.Status = model.TaskStatusCompleted
	n, err := svc.Reschedule(ctx, task, now)
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Equal(t, 0, activeCount(t, repo, task.ID))
}

func TestCancelSuppressesActiveNotification(t *testing.T) {
	ctx := context.Background()
	_, repo, svc := newReminderFixture(t)

	now := time.Now()
	task := &model.Task{
		ID:             1,
		UserID:         1,
		DueDate:        timePtr(now.Add(48 * time.Hour)),
		ReminderOffset: durPtr(time.Hour),
	}
	n, err := svc.Schedule(ctx, task, now)
	require.NoError(t, err)
	require.NotNil(t, n)

	require.NoError(t, svc.Cancel(ctx, task.ID))

	got, err := repo.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationSuppressed, got.State)
}
