package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"telepost/internal/biz/domain"
)

// Mock implementations shared across the usecase tests

type mockStatsRepo struct {
	saves int
}

func (m *mockStatsRepo) Load(ctx context.Context) (*domain.StatsSnapshot, error) { return nil, nil }
func (m *mockStatsRepo) Save(ctx context.Context, snap *domain.StatsSnapshot) error {
	m.saves++
	return nil
}
func (m *mockStatsRepo) Close() error { return nil }

func newTestStats(t interface{ Fatalf(string, ...any) }) *StatsUsecase {
	stats, err := NewStatsUsecase(context.Background(), &mockStatsRepo{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return stats
}

type sendCall struct {
	kind    string // text / media / group
	caption string
	plain   bool
	assets  int
}

type mockPublishRepo struct {
	calls []sendCall
	errs  []error // popped per call; nil when exhausted
}

func (m *mockPublishRepo) nextErr() error {
	if len(m.errs) == 0 {
		return nil
	}
	err := m.errs[0]
	m.errs = m.errs[1:]
	return err
}

func (m *mockPublishRepo) SendText(ctx context.Context, dest, text string, plain bool) error {
	m.calls = append(m.calls, sendCall{kind: "text", caption: text, plain: plain})
	return m.nextErr()
}

func (m *mockPublishRepo) SendMedia(ctx context.Context, dest string, asset domain.MediaAsset, caption string, plain bool) error {
	m.calls = append(m.calls, sendCall{kind: "media", caption: caption, plain: plain, assets: 1})
	return m.nextErr()
}

func (m *mockPublishRepo) SendMediaGroup(ctx context.Context, dest string, assets []domain.MediaAsset, caption string, plain bool) error {
	m.calls = append(m.calls, sendCall{kind: "group", caption: caption, plain: plain, assets: len(assets)})
	return m.nextErr()
}

type mockAssetRepo struct {
	mu      sync.Mutex
	present map[string]bool
	removed []string
}

func newMockAssetRepo(paths ...string) *mockAssetRepo {
	present := make(map[string]bool, len(paths))
	for _, p := range paths {
		present[p] = true
	}
	return &mockAssetRepo{present: present}
}

func (m *mockAssetRepo) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.present[path]
}

func (m *mockAssetRepo) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, path)
	delete(m.present, path)
	return nil
}

func (m *mockAssetRepo) SweepOlderThan(before time.Time) (int, int64, error) {
	return 0, 0, nil
}

func (m *mockAssetRepo) removedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

type mockReviewRepo struct {
	mu       sync.Mutex
	previews []*domain.PendingPost
	notes    []string
}

func (m *mockReviewRepo) SendPreview(ctx context.Context, post *domain.PendingPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.previews = append(m.previews, post)
	return nil
}

func (m *mockReviewRepo) Notify(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, text)
	return nil
}

func (m *mockReviewRepo) previewCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.previews)
}

type mockRewriteRepo struct {
	out   string
	err   error
	calls int
}

func (m *mockRewriteRepo) Rewrite(ctx context.Context, text string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if m.out != "" {
		return m.out, nil
	}
	return text, nil
}

type mockFeedRepo struct {
	mu        sync.Mutex
	downloads int
	failAll   bool
	assets    *mockAssetRepo // downloaded files are registered here when set
}

func (m *mockFeedRepo) Download(ctx context.Context, ref domain.MediaRef, postID string) (*domain.MediaAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, fmt.Errorf("download failed")
	}
	m.downloads++
	path := fmt.Sprintf("/tmp/%s_%s.bin", postID, ref.FileID)
	if m.assets != nil {
		m.assets.mu.Lock()
		m.assets.present[path] = true
		m.assets.mu.Unlock()
	}
	return &domain.MediaAsset{Path: path, Kind: ref.Kind}, nil
}
