package service

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/lecturehub/backend-go/internal/database/repository"
)

// TokenJanitor periodically deletes refresh-token rows past their expiry.
// This is storage reclamation only: RevokeIfValid's expiry condition already
// makes stale rows inert, so the protocol never depends on the sweep running.
type TokenJanitor struct {
	refreshTokenRepo repository.RefreshTokenRepository
	logger           *slog.Logger
}

// NewTokenJanitor creates a new token janitor instance
func NewTokenJanitor(refreshTokenRepo repository.RefreshTokenRepository, logger *slog.Logger) *TokenJanitor {
	return &TokenJanitor{
		refreshTokenRepo: refreshTokenRepo,
		logger:           logger,
	}
}

// Register schedules the sweep on the given scheduler (daily by default,
// see TOKEN_JANITOR_CRON).
func (j *TokenJanitor) Register(scheduler gocron.Scheduler, cronSchedule string) error {
	_, err := scheduler.NewJob(
		gocron.CronJob(cronSchedule, false),
		gocron.NewTask(j.Sweep),
	)
	return err
}

// Sweep deletes every record whose expiry has passed.
func (j *TokenJanitor) Sweep() {
	deleted, err := j.refreshTokenRepo.DeleteExpiredBefore(time.Now())
	if err != nil {
		j.logger.Error("❌ [TokenJanitor] Failed to delete expired refresh tokens", "error", err)
		return
	}

	j.logger.Info("🧹 [TokenJanitor] Expired refresh tokens deleted", "count", deleted)
}
