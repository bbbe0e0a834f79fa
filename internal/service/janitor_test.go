package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"telepost/internal/biz/domain"
	"telepost/internal/biz/usecase"
)

func newTestJanitor(t *testing.T, assets *mockAssetRepo, retention time.Duration) (*Janitor, *usecase.QueueUsecase, *usecase.AggregatorUsecase, *usecase.FilterUsecase, *mockReviewRepo) {
	t.Helper()

	stats, err := usecase.NewStatsUsecase(context.Background(), &mockStatsRepo{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	publisher := usecase.NewPublisherUsecase(&mockPublishRepo{}, assets, stats, "@target", "")
	queue := usecase.NewQueueUsecase(publisher, stats, assets, usecase.DefaultQueueConfig())
	filter := usecase.NewFilterUsecase()
	review := &mockReviewRepo{}
	agg := usecase.NewAggregatorUsecase(filter,
		usecase.NewRewriteUsecase(stubRewrite{}, nil),
		nil, review, queue, stats, usecase.DefaultAggregatorConfig())

	j := NewJanitor(queue, agg, filter, assets, review, JanitorConfig{
		Schedule:  "0 4 * * *",
		Retention: retention,
	})
	return j, queue, agg, filter, review
}

type stubRewrite struct{}

func (stubRewrite) Rewrite(ctx context.Context, text string) (string, error) {
	return text, nil
}

func TestSweep_PurgesStaleAndReports(t *testing.T) {
	assets := &mockAssetRepo{files: 3, bytes: 2048}
	j, queue, _, filter, review := newTestJanitor(t, assets, 24*time.Hour)

	now := time.Now()

	stale := &domain.PendingPost{ID: "1_100", Token: "tok-old", Text: "Старый", Source: "technews",
		CreatedAt: now.Add(-25 * time.Hour)}
	queue.Add(stale)
	fresh := &domain.PendingPost{ID: "2_200", Token: "tok-new", Text: "Свежий", Source: "technews",
		CreatedAt: now.Add(-23 * time.Hour)}
	queue.Add(fresh)

	filter.IsDuplicate("какая-то новость с достаточно длинным текстом")

	j.Sweep(context.Background(), now)

	if queue.PendingCount() != 1 {
		t.Errorf("Expected only fresh post kept, got %d pending", queue.PendingCount())
	}
	if _, err := queue.Get("tok-new"); err != nil {
		t.Error("Expected fresh post kept")
	}
	if filter.CacheSize() != 0 {
		t.Error("Expected fingerprint cache cleared")
	}

	if len(review.notes) != 1 {
		t.Fatalf("Expected 1 summary, got %d", len(review.notes))
	}
	note := review.notes[0]
	if !strings.Contains(note, "🧹") || !strings.Contains(note, "3") || !strings.Contains(note, "2048") {
		t.Errorf("Unexpected summary: %q", note)
	}
}

func TestSweep_ExpiresScheduledEntries(t *testing.T) {
	assets := &mockAssetRepo{}
	j, queue, _, _, _ := newTestJanitor(t, assets, 24*time.Hour)

	now := time.Now()
	stale := &domain.PendingPost{ID: "1_100", Token: "tok-old", Text: "Старый", Source: "technews",
		CreatedAt: now.Add(-48 * time.Hour)}
	queue.Add(stale)
	if _, err := queue.Delay(context.Background(), "tok-old", now.Add(-48*time.Hour)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	j.Sweep(context.Background(), now)

	if queue.ScheduledCount() != 0 {
		t.Errorf("Expected stale schedule entry purged, got %d", queue.ScheduledCount())
	}
}

func TestSweep_DropsGroupBuffers(t *testing.T) {
	assets := &mockAssetRepo{}
	j, _, agg, _, _ := newTestJanitor(t, assets, 24*time.Hour)

	agg.Ingest(context.Background(), domain.SourceItem{
		ID: 1, Text: "Минцифры анонсировало новый реестр отечественного ПО",
		GroupID: "555", Source: "technews", Timestamp: time.Now(),
	})
	if agg.BufferedGroups() != 1 {
		t.Fatalf("Expected 1 buffered group, got %d", agg.BufferedGroups())
	}

	j.Sweep(context.Background(), time.Now())

	if agg.BufferedGroups() != 0 {
		t.Errorf("Expected buffers dropped, got %d", agg.BufferedGroups())
	}
}
