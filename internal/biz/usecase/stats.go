package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"telepost/internal/biz/domain"
	"telepost/internal/biz/repo"
)

// StatsUsecase maintains the cross-cutting pipeline counters. Every
// mutation is written through to the durable store; the event rate makes
// batching unnecessary.
type StatsUsecase struct {
	statsRepo repo.StatsRepo

	mu   sync.Mutex
	snap *domain.StatsSnapshot
}

// NewStatsUsecase creates the stats usecase, loading any persisted
// counters and merging them over in-memory defaults (persisted wins).
func NewStatsUsecase(ctx context.Context, statsRepo repo.StatsRepo) (*StatsUsecase, error) {
	snap := domain.NewStatsSnapshot(time.Now())

	persisted, err := statsRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	if persisted != nil {
		if !persisted.StartedAt.IsZero() {
			snap.StartedAt = persisted.StartedAt
		}
		for name, value := range persisted.Counters {
			snap.Counters[name] = value
		}
		for source, counters := range persisted.BySource {
			bySource := make(map[domain.Counter]int64, len(counters))
			for name, value := range counters {
				bySource[name] = value
			}
			snap.BySource[source] = bySource
		}
	}

	return &StatsUsecase{statsRepo: statsRepo, snap: snap}, nil
}

// Increment bumps a counter and, when a source is given, the matching
// per-source entry (created on first use).
func (uc *StatsUsecase) Increment(ctx context.Context, name domain.Counter, source string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.snap.Counters[name]++
	if source != "" {
		bySource, ok := uc.snap.BySource[source]
		if !ok {
			bySource = make(map[domain.Counter]int64)
			uc.snap.BySource[source] = bySource
		}
		bySource[name]++
	}

	if err := uc.statsRepo.Save(ctx, uc.snap); err != nil {
		slog.Warn("[Stats] Failed to persist counters", slog.String("error", err.Error()))
	}
}

// Snapshot returns a copy of the current counter set
func (uc *StatsUsecase) Snapshot() *domain.StatsSnapshot {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	out := domain.NewStatsSnapshot(uc.snap.StartedAt)
	for name, value := range uc.snap.Counters {
		out.Counters[name] = value
	}
	for source, counters := range uc.snap.BySource {
		bySource := make(map[domain.Counter]int64, len(counters))
		for name, value := range counters {
			bySource[name] = value
		}
		out.BySource[source] = bySource
	}
	return out
}

// Reset reinitializes all counters and records a new start time
func (uc *StatsUsecase) Reset(ctx context.Context) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.snap = domain.NewStatsSnapshot(time.Now())
	if err := uc.statsRepo.Save(ctx, uc.snap); err != nil {
		slog.Warn("[Stats] Failed to persist reset", slog.String("error", err.Error()))
	}
}

// Format renders the counter set for the admin /stats command
func (uc *StatsUsecase) Format() string {
	snap := uc.Snapshot()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Статистика с %s\n\n", snap.StartedAt.Format("02.01.2006 15:04")))
	for _, name := range domain.AllCounters {
		sb.WriteString(fmt.Sprintf("%s: %d\n", name, snap.Counters[name]))
	}

	if len(snap.BySource) > 0 {
		sources := make([]string, 0, len(snap.BySource))
		for source := range snap.BySource {
			sources = append(sources, source)
		}
		sort.Strings(sources)

		sb.WriteString("\nПо источникам:\n")
		for _, source := range sources {
			counters := snap.BySource[source]
			sb.WriteString(fmt.Sprintf("%s: received=%d published=%d\n",
				source, counters[domain.CounterReceived], counters[domain.CounterPublished]))
		}
	}
	return sb.String()
}
