package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the scheduling engine.
type Config struct {
	// TelegramToken enables reminder delivery over Telegram. When empty,
	// reminders are written to the log instead.
	TelegramToken string
	DatabaseURL   string
	LogLevel      string

	// TickInterval is the cadence of the dispatcher poll.
	TickInterval time.Duration

	// GraceWindow is the maximum staleness after which a late notification
	// is suppressed instead of delivered.
	GraceWindow time.Duration

	// DeliveryCooldown is the per-task minimum spacing between deliveries.
	DeliveryCooldown time.Duration

	// ClaimTTL bounds how long an in_flight claim stays valid before other
	// dispatcher instances may reclaim it.
	ClaimTTL time.Duration

	// MaxDeliveryAttempts caps delivery retries before a notification is
	// marked permanently failed.
	MaxDeliveryAttempts int

	// RetentionPeriod controls how long terminal notifications are kept
	// before the daily prune removes them. PruneTime is HH:MM.
	RetentionPeriod time.Duration
	PruneTime       string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken:       strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		LogLevel:            strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		PruneTime:           strings.TrimSpace(os.Getenv("PRUNE_TIME")),
		MaxDeliveryAttempts: parseCount(os.Getenv("MAX_DELIVERY_ATTEMPTS")),
	}

	var err error
	if cfg.TickInterval, err = parseDuration("TICK_INTERVAL", time.Minute); err != nil {
		return cfg, err
	}
	if cfg.GraceWindow, err = parseDuration("GRACE_WINDOW", 24*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.DeliveryCooldown, err = parseDuration("DELIVERY_COOLDOWN", time.Hour); err != nil {
		return cfg, err
	}
	if cfg.ClaimTTL, err = parseDuration("CLAIM_TTL", 5*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.RetentionPeriod, err = parseDuration("RETENTION_PERIOD", 30*24*time.Hour); err != nil {
		return cfg, err
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "taskflow.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.MaxDeliveryAttempts <= 0 {
		cfg.MaxDeliveryAttempts = 3
	}
	if cfg.PruneTime == "" {
		cfg.PruneTime = "03:30"
	}

	return cfg, nil
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: duration must be positive", key)
	}
	return d, nil
}

func parseCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
