package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"telepost/internal/biz/repo"
	"telepost/internal/biz/usecase"
)

// Scheduler promotes due schedule entries to the publisher on a fixed
// polling interval.
type Scheduler struct {
	queue      *usecase.QueueUsecase
	reviewRepo repo.ReviewRepo

	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(queue *usecase.QueueUsecase, reviewRepo repo.ReviewRepo, interval time.Duration) *Scheduler {
	return &Scheduler{
		queue:      queue,
		reviewRepo: reviewRepo,
		interval:   interval,
	}
}

// Start starts the polling loop
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop()

	slog.Info("[Scheduler] Started", slog.Duration("interval", s.interval))
}

// Stop stops the polling loop
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	slog.Info("[Scheduler] Stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Tick(context.Background(), time.Now())
		}
	}
}

// Tick publishes every due entry once. Entries are popped from the
// schedule before the send, so an overlapping manual action cannot
// double-publish. Failures are not retried; the admin is alerted.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	for _, res := range s.queue.PromoteDue(ctx, now) {
		if res.Err != nil {
			s.notify(ctx, fmt.Sprintf("⚠️ Не удалось опубликовать отложенный пост %s: %s",
				res.Post.ID, truncate(res.Err.Error(), 100)))
			continue
		}
		s.notify(ctx, fmt.Sprintf("✅ Отложенный пост %s опубликован", res.Post.ID))
	}
}

func (s *Scheduler) notify(ctx context.Context, text string) {
	if err := s.reviewRepo.Notify(ctx, text); err != nil {
		slog.Warn("[Scheduler] Failed to notify admin", slog.String("error", err.Error()))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
