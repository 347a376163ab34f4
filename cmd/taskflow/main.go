package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"taskflow/internal/config"
	"taskflow/internal/delivery"
	"taskflow/internal/repository"
	"taskflow/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config")
	}

	logger := newLogger(cfg.LogLevel)

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db")
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var deliverer service.Deliverer
	if cfg.TelegramToken != "" {
		tg, err := delivery.NewTelegram(cfg.TelegramToken, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		deliverer = tg
	} else {
		logger.Warn().Msg("no telegram token configured, reminders go to the log")
		deliverer = delivery.NewLog(logger)
	}

	dispatchSvc := service.NewDispatchService(
		service.DispatchConfig{
			GraceWindow: cfg.GraceWindow,
			Cooldown:    cfg.DeliveryCooldown,
			ClaimTTL:    cfg.ClaimTTL,
			MaxAttempts: cfg.MaxDeliveryAttempts,
		},
		notificationRepo, taskRepo, userRepo, deliverer, logger,
	)

	scheduler := service.NewSchedulerService(time.Local)

	if _, err := scheduler.Every(cfg.TickInterval, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := dispatchSvc.Tick(jobCtx, time.Now()); err != nil {
			logger.Error().Err(err).Msg("tick")
		}
	}); err != nil {
		logger.Fatal().Err(err).Msg("schedule tick")
	}

	if _, err := scheduler.DailyAt(cfg.PruneTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := dispatchSvc.PruneTerminal(jobCtx, time.Now(), cfg.RetentionPeriod); err != nil {
			logger.Error().Err(err).Msg("prune")
		}
	}); err != nil {
		logger.Fatal().Err(err).Msg("schedule prune")
	}

	scheduler.Start()
	defer scheduler.Stop()

	logger.Info().Dur("tick_interval", cfg.TickInterval).Msg("taskflow dispatcher started")
	<-ctx.Done()
	logger.Info().Msg("shutdown complete")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
