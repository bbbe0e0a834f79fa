package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"telepost/internal/biz/repo"
	"telepost/internal/biz/usecase"
)

// JanitorConfig contains cleanup configuration
type JanitorConfig struct {
	Schedule  string        // cron spec for the daily sweep
	Retention time.Duration // age after which posts, entries and files are reclaimed
}

// DefaultJanitorConfig returns default janitor configuration
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		Schedule:  "0 4 * * *", // daily at 04:00
		Retention: 24 * time.Hour,
	}
}

// Janitor reclaims orphaned media files and expires stale queue and
// schedule entries on a daily schedule.
type Janitor struct {
	queue      *usecase.QueueUsecase
	aggregator *usecase.AggregatorUsecase
	filter     *usecase.FilterUsecase
	assetRepo  repo.AssetRepo
	reviewRepo repo.ReviewRepo
	config     JanitorConfig

	cron *cron.Cron
}

// NewJanitor creates a new cleanup janitor
func NewJanitor(
	queue *usecase.QueueUsecase,
	aggregator *usecase.AggregatorUsecase,
	filter *usecase.FilterUsecase,
	assetRepo repo.AssetRepo,
	reviewRepo repo.ReviewRepo,
	config JanitorConfig,
) *Janitor {
	return &Janitor{
		queue:      queue,
		aggregator: aggregator,
		filter:     filter,
		assetRepo:  assetRepo,
		reviewRepo: reviewRepo,
		config:     config,
		cron:       cron.New(),
	}
}

// Start schedules the daily sweep
func (j *Janitor) Start() error {
	_, err := j.cron.AddFunc(j.config.Schedule, func() {
		j.Sweep(context.Background(), time.Now())
	})
	if err != nil {
		return fmt.Errorf("schedule janitor: %w", err)
	}
	j.cron.Start()
	slog.Info("[Janitor] Started", slog.String("schedule", j.config.Schedule))
	return nil
}

// Stop stops the schedule and waits for a running sweep to finish
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	slog.Info("[Janitor] Stopped")
}

// Sweep performs one cleanup pass: orphaned asset files older than the
// retention window are deleted regardless of queue membership, stale
// posts and schedule entries are force-removed, and the group buffers and
// fingerprint cache are cleared. A summary is reported to the admin.
func (j *Janitor) Sweep(ctx context.Context, now time.Time) {
	before := now.Add(-j.config.Retention)

	files, bytes, err := j.assetRepo.SweepOlderThan(before)
	if err != nil {
		slog.Warn("[Janitor] Asset sweep failed", slog.String("error", err.Error()))
	}

	purged := j.queue.ExpireStale(ctx, before)

	// Bounded caches are cheap to rebuild; stale entries have no value
	j.aggregator.Reset()
	j.filter.ResetCache()

	slog.Info("[Janitor] Sweep complete",
		slog.Int("files", files),
		slog.Int64("bytes", bytes),
		slog.Int("purged", purged))

	summary := fmt.Sprintf("🧹 Очистка: удалено файлов %d (%d байт), просроченных постов %d",
		files, bytes, purged)
	if err := j.reviewRepo.Notify(ctx, summary); err != nil {
		slog.Warn("[Janitor] Failed to send summary", slog.String("error", err.Error()))
	}
}
