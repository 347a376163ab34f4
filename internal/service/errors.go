package service

import "errors"

var (
	// ErrTitleRequired blocks task creation without a title.
	ErrTitleRequired = errors.New("title is required")

	// ErrRecurrenceRequiresDueDate blocks writes that set a recurrence
	// pattern on a task with no due date.
	ErrRecurrenceRequiresDueDate = errors.New("recurring task requires a due date")

	// ErrAlreadyCompleted rejects a duplicate completion: the status
	// compare-and-set found the task already completed, so no second
	// successor is created.
	ErrAlreadyCompleted = errors.New("task already completed")

	// ErrRecurrenceGenerationFailed reports that the successor instance
	// could not be created. It is non-fatal: the completion itself stands
	// and the failure is logged for operational retry.
	ErrRecurrenceGenerationFailed = errors.New("failed to generate next recurring instance")
)
