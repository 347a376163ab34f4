package delivery

import (
	"context"

	"github.com/rs/zerolog"

	"taskflow/internal/model"
)

// Log writes reminders to the structured log. Used when no Telegram token is
// configured, e.g. in development.
type Log struct {
	log zerolog.Logger
}

func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log.With().Str("component", "logdelivery").Logger()}
}

func (l *Log) Deliver(ctx context.Context, n *model.Notification, task *model.Task, user *model.User) error {
	l.log.Info().
		Uint("notification_id", n.ID).
		Uint("task_id", task.ID).
		Uint("user_id", user.ID).
		Str("title", task.Title).
		Msg("reminder")
	return nil
}
