package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"telepost/internal/biz/domain"
)

func TestStatsRepo_LoadEmpty(t *testing.T) {
	repo, err := NewStatsRepo(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer repo.Close()

	snap, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if snap != nil {
		t.Errorf("Expected nil snapshot from empty store, got %+v", snap)
	}
}

func TestStatsRepo_SaveAndLoad(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "stats.db")
	repo, err := NewStatsRepo(dbPath)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	startedAt := time.Now().Truncate(time.Second)
	snap := domain.NewStatsSnapshot(startedAt)
	snap.Counters[domain.CounterReceived] = 10
	snap.Counters[domain.CounterPublished] = 7
	snap.BySource["technews"] = map[domain.Counter]int64{
		domain.CounterReceived:  10,
		domain.CounterPublished: 7,
	}

	if err := repo.Save(context.Background(), snap); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	repo.Close()

	// Reopen, as a restart would
	repo, err = NewStatsRepo(dbPath)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer repo.Close()

	loaded, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected snapshot after save")
	}
	if !loaded.StartedAt.Equal(startedAt) {
		t.Errorf("Expected start time %v, got %v", startedAt, loaded.StartedAt)
	}
	if loaded.Counters[domain.CounterReceived] != 10 {
		t.Errorf("Expected received=10, got %d", loaded.Counters[domain.CounterReceived])
	}
	if loaded.BySource["technews"][domain.CounterPublished] != 7 {
		t.Error("Expected per-source published=7")
	}
}

func TestStatsRepo_SaveOverwrites(t *testing.T) {
	repo, err := NewStatsRepo(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer repo.Close()

	first := domain.NewStatsSnapshot(time.Now())
	first.Counters[domain.CounterReceived] = 5
	first.BySource["old"] = map[domain.Counter]int64{domain.CounterReceived: 5}
	if err := repo.Save(context.Background(), first); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	second := domain.NewStatsSnapshot(time.Now())
	second.Counters[domain.CounterReceived] = 1
	if err := repo.Save(context.Background(), second); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	loaded, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if loaded.Counters[domain.CounterReceived] != 1 {
		t.Errorf("Expected received=1 after overwrite, got %d", loaded.Counters[domain.CounterReceived])
	}
	if len(loaded.BySource) != 0 {
		t.Errorf("Expected stale source rows cleared, got %v", loaded.BySource)
	}
}
