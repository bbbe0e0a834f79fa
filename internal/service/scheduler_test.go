package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"telepost/internal/biz/domain"
	"telepost/internal/biz/usecase"
)

// Mock implementations

type mockStatsRepo struct{}

func (m *mockStatsRepo) Load(ctx context.Context) (*domain.StatsSnapshot, error)    { return nil, nil }
func (m *mockStatsRepo) Save(ctx context.Context, snap *domain.StatsSnapshot) error { return nil }
func (m *mockStatsRepo) Close() error                                               { return nil }

type mockPublishRepo struct {
	mu    sync.Mutex
	sends int
	err   error
}

func (m *mockPublishRepo) SendText(ctx context.Context, dest, text string, plain bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends++
	return m.err
}

func (m *mockPublishRepo) SendMedia(ctx context.Context, dest string, asset domain.MediaAsset, caption string, plain bool) error {
	return m.SendText(ctx, dest, caption, plain)
}

func (m *mockPublishRepo) SendMediaGroup(ctx context.Context, dest string, assets []domain.MediaAsset, caption string, plain bool) error {
	return m.SendText(ctx, dest, caption, plain)
}

type mockAssetRepo struct {
	files int
	bytes int64
}

func (m *mockAssetRepo) Exists(path string) bool  { return true }
func (m *mockAssetRepo) Remove(path string) error { return nil }
func (m *mockAssetRepo) SweepOlderThan(before time.Time) (int, int64, error) {
	return m.files, m.bytes, nil
}

type mockReviewRepo struct {
	mu    sync.Mutex
	notes []string
}

func (m *mockReviewRepo) SendPreview(ctx context.Context, post *domain.PendingPost) error {
	return nil
}

func (m *mockReviewRepo) Notify(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, text)
	return nil
}

func newTestQueue(t *testing.T, publish *mockPublishRepo) *usecase.QueueUsecase {
	t.Helper()
	stats, err := usecase.NewStatsUsecase(context.Background(), &mockStatsRepo{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	publisher := usecase.NewPublisherUsecase(publish, &mockAssetRepo{}, stats, "@target", "")
	return usecase.NewQueueUsecase(publisher, stats, &mockAssetRepo{}, usecase.QueueConfig{DelayOffset: 30 * time.Minute})
}

// Tests

func TestTick_PromotesDueEntry(t *testing.T) {
	publish := &mockPublishRepo{}
	queue := newTestQueue(t, publish)
	review := &mockReviewRepo{}
	s := NewScheduler(queue, review, time.Second)

	queue.Add(&domain.PendingPost{ID: "1_100", Token: "tok-1", Text: "Текст", Source: "technews", CreatedAt: time.Now()})
	now := time.Now()
	if _, err := queue.Delay(context.Background(), "tok-1", now); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Not due yet
	s.Tick(context.Background(), now.Add(29*time.Minute))
	if publish.sends != 0 {
		t.Fatalf("Expected no sends before due time, got %d", publish.sends)
	}

	s.Tick(context.Background(), now.Add(31*time.Minute))
	if publish.sends != 1 {
		t.Fatalf("Expected 1 send, got %d", publish.sends)
	}
	if len(review.notes) != 1 || !strings.Contains(review.notes[0], "✅") {
		t.Errorf("Expected success notification, got %v", review.notes)
	}

	// Entry was popped before the send; a second tick is a no-op
	s.Tick(context.Background(), now.Add(time.Hour))
	if publish.sends != 1 {
		t.Errorf("Expected no double publish, got %d sends", publish.sends)
	}
}

func TestTick_AlertsOnFailure(t *testing.T) {
	publish := &mockPublishRepo{err: fmt.Errorf("network down")}
	queue := newTestQueue(t, publish)
	review := &mockReviewRepo{}
	s := NewScheduler(queue, review, time.Second)

	queue.Add(&domain.PendingPost{ID: "1_100", Token: "tok-1", Text: "Текст", Source: "technews", CreatedAt: time.Now()})
	now := time.Now()
	queue.Delay(context.Background(), "tok-1", now)

	s.Tick(context.Background(), now.Add(time.Hour))

	if len(review.notes) != 1 || !strings.Contains(review.notes[0], "⚠️") {
		t.Fatalf("Expected failure alert, got %v", review.notes)
	}
	// Failed entries are not retried
	if queue.ScheduledCount() != 0 {
		t.Error("Expected failed entry discarded")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	queue := newTestQueue(t, &mockPublishRepo{})
	s := NewScheduler(queue, &mockReviewRepo{}, 10*time.Millisecond)

	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	s.Stop()
}
