package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// Deliverer is the user-facing alert channel (Telegram, log, ...). The
// dispatcher treats it as opaque: any error counts as a failed attempt.
type Deliverer interface {
	Deliver(ctx context.Context, n *model.Notification, task *model.Task, user *model.User) error
}

// DispatchConfig tunes the dispatcher. Zero values fall back to defaults.
type DispatchConfig struct {
	// GraceWindow: a pending notification older than this is suppressed
	// without a delivery attempt.
	GraceWindow time.Duration

	// Cooldown: minimum spacing between deliveries for the same task.
	Cooldown time.Duration

	// ClaimTTL: how long an in_flight claim stays valid.
	ClaimTTL time.Duration

	// MaxAttempts: delivery attempts before a notification is marked
	// permanently failed.
	MaxAttempts int

	// BatchSize caps candidates per tick. 0 means unbounded.
	BatchSize int
}

func (c DispatchConfig) withDefaults() DispatchConfig {
	if c.GraceWindow <= 0 {
		c.GraceWindow = 24 * time.Hour
	}
	if c.Cooldown <= 0 {
		c.Cooldown = time.Hour
	}
	if c.ClaimTTL <= 0 {
		c.ClaimTTL = 5 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	return c
}

// DispatchService polls due notifications and delivers them.
//
// Multiple instances may run concurrently: coordination happens solely
// through the claim compare-and-set in the notification store, so no
// notification is ever delivered by more than one instance.
type DispatchService struct {
	instanceID    string
	cfg           DispatchConfig
	notifications *repository.NotificationRepository
	tasks         *repository.TaskRepository
	users         *repository.UserRepository
	deliverer     Deliverer
	log           zerolog.Logger
}

func NewDispatchService(
	cfg DispatchConfig,
	notifications *repository.NotificationRepository,
	tasks *repository.TaskRepository,
	users *repository.UserRepository,
	deliverer Deliverer,
	log zerolog.Logger,
) *DispatchService {
	id := uuid.NewString()
	return &DispatchService{
		instanceID:    id,
		cfg:           cfg.withDefaults(),
		notifications: notifications,
		tasks:         tasks,
		users:         users,
		deliverer:     deliverer,
		log:           log.With().Str("component", "dispatch").Str("instance", id).Logger(),
	}
}

// Tick processes notifications due at now and returns the ids delivered in
// this call. now comes from the external trigger, keeping the dispatcher
// deterministic and testable.
func (s *DispatchService) Tick(ctx context.Context, now time.Time) ([]uint, error) {
	if reclaimed, err := s.notifications.ReclaimExpired(ctx, now); err != nil {
		s.log.Warn().Err(err).Msg("tick.reclaim_failed")
	} else if reclaimed > 0 {
		s.log.Info().Int64("count", reclaimed).Msg("tick.claims_reclaimed")
	}

	due, err := s.notifications.ListDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	var delivered []uint
	for i := range due {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		n := &due[i]

		// Too stale to be useful.
		if now.Sub(n.FireAt) > s.cfg.GraceWindow {
			if ok, err := s.notifications.MarkSuppressed(ctx, n.ID); err != nil {
				s.log.Warn().Err(err).Uint("notification_id", n.ID).Msg("tick.suppress_failed")
			} else if ok {
				s.log.Info().Uint("notification_id", n.ID).Uint("task_id", n.TaskID).
					Time("fire_at", n.FireAt).Msg("notification.suppressed_stale")
			}
			continue
		}

		// A store timeout here leaves the row pending; if the update went
		// through without us seeing the reply, claim expiry reclaims it.
		claimed, err := s.notifications.Claim(ctx, n.ID, s.instanceID, now.Add(s.cfg.ClaimTTL))
		if err != nil {
			s.log.Warn().Err(err).Uint("notification_id", n.ID).Msg("tick.claim_failed")
			continue
		}
		if !claimed {
			continue
		}

		if s.deliverOne(ctx, n, now) {
			delivered = append(delivered, n.ID)
		}
	}
	return delivered, nil
}

func (s *DispatchService) deliverOne(ctx context.Context, n *model.Notification, now time.Time) bool {
	// Per-task cooldown: deferring is not a failure, so the claim is
	// released without touching the retry counter.
	recent, err := s.notifications.DeliveredSince(ctx, n.TaskID, now.Add(-s.cfg.Cooldown))
	if err != nil {
		s.release(ctx, n.ID)
		s.log.Warn().Err(err).Uint("notification_id", n.ID).Msg("dispatch.cooldown_check_failed")
		return false
	}
	if recent {
		s.release(ctx, n.ID)
		s.log.Debug().Uint("notification_id", n.ID).Uint("task_id", n.TaskID).
			Msg("notification.deferred_cooldown")
		return false
	}

	task, err := s.tasks.GetByID(ctx, n.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Task deleted from under the notification.
			_, _ = s.notifications.MarkSuppressed(ctx, n.ID)
			s.log.Info().Uint("notification_id", n.ID).Uint("task_id", n.TaskID).
				Msg("notification.suppressed_orphan")
			return false
		}
		s.release(ctx, n.ID)
		s.log.Warn().Err(err).Uint("notification_id", n.ID).Msg("dispatch.task_lookup_failed")
		return false
	}

	user, err := s.users.GetByID(ctx, task.UserID)
	if err != nil {
		s.release(ctx, n.ID)
		s.log.Warn().Err(err).Uint("notification_id", n.ID).Uint("user_id", task.UserID).
			Msg("dispatch.user_lookup_failed")
		return false
	}

	if err := s.deliverer.Deliver(ctx, n, task, user); err != nil {
		terminal := n.RetryCount+1 >= s.cfg.MaxAttempts
		if _, merr := s.notifications.MarkFailed(ctx, n.ID, s.instanceID, now, terminal); merr != nil {
			s.log.Warn().Err(merr).Uint("notification_id", n.ID).Msg("dispatch.mark_failed_error")
			return false
		}
		if terminal {
			s.log.Error().Err(err).Uint("notification_id", n.ID).Uint("task_id", n.TaskID).
				Int("attempts", n.RetryCount+1).Msg("notification.permanently_failed")
		} else {
			s.log.Warn().Err(err).Uint("notification_id", n.ID).Uint("task_id", n.TaskID).
				Int("attempt", n.RetryCount+1).Msg("notification.delivery_retry_scheduled")
		}
		return false
	}

	ok, err := s.notifications.MarkDelivered(ctx, n.ID, s.instanceID, now)
	if err != nil {
		s.log.Warn().Err(err).Uint("notification_id", n.ID).Msg("dispatch.mark_delivered_error")
		return false
	}
	if !ok {
		// Suppressed mid-flight; the attempt finished but the row stays
		// retired and is never redelivered.
		s.log.Info().Uint("notification_id", n.ID).Msg("notification.suppressed_midflight")
		return false
	}

	s.log.Info().Uint("notification_id", n.ID).Uint("task_id", n.TaskID).
		Msg("notification.delivered")
	return true
}

func (s *DispatchService) release(ctx context.Context, id uint) {
	if _, err := s.notifications.Release(ctx, id, s.instanceID); err != nil {
		s.log.Warn().Err(err).Uint("notification_id", id).Msg("dispatch.release_failed")
	}
}

// PruneTerminal removes terminal notifications older than retention. Wired to
// the daily maintenance job.
func (s *DispatchService) PruneTerminal(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	pruned, err := s.notifications.PruneTerminal(ctx, now.Add(-retention))
	if err != nil {
		return 0, err
	}
	if pruned > 0 {
		s.log.Info().Int64("count", pruned).Msg("notification.pruned")
	}
	return pruned, nil
}
