// Package delivery contains alert-channel adapters for reminder
// notifications. The dispatcher treats them as opaque callbacks.
package delivery

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"taskflow/internal/model"
)

// Telegram pushes reminders to the owner's chat. Sends are rate-limited
// globally to stay under the Telegram API message quota; the per-task
// delivery cooldown is a separate concern and lives in the store.
type Telegram struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewTelegram(token string, log zerolog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info().Str("account", api.Self.UserName).Msg("telegram delivery authorized")

	return &Telegram{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(25), 25),
		log:     log.With().Str("component", "telegram").Logger(),
	}, nil
}

func (t *Telegram) Deliver(ctx context.Context, n *model.Notification, task *model.Task, user *model.User) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(user.TelegramID, formatReminder(task))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	return nil
}

func formatReminder(task *model.Task) string {
	var sb strings.Builder

	sb.WriteString("⏰ <b>Reminder</b>\n")
	sb.WriteString(html.EscapeString(strings.TrimSpace(task.Title)))

	if task.DueDate != nil {
		sb.WriteString(fmt.Sprintf("\n📆 due %s", task.DueDate.Format("2006-01-02 15:04")))
	}
	if task.Priority != "" && task.Priority != model.PriorityNone {
		sb.WriteString(fmt.Sprintf("\n❗ priority: %s", task.Priority))
	}
	if task.Recurring() {
		sb.WriteString(fmt.Sprintf("\n♻️ repeats %s", task.RecurrencePattern))
	}
	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n📝 %s", html.EscapeString(strings.TrimSpace(task.Description))))
	}

	return sb.String()
}
