package domain

import "time"

// Counter names a pipeline statistic
type Counter string

const (
	CounterReceived          Counter = "received"
	CounterPublished         Counter = "published"
	CounterSkipped           Counter = "skipped"
	CounterFilteredAd        Counter = "filtered_ad"
	CounterFilteredDuplicate Counter = "filtered_duplicate"
	CounterDelayed           Counter = "delayed"
	CounterErrors            Counter = "errors"
)

// AllCounters lists every counter in display order
var AllCounters = []Counter{
	CounterReceived,
	CounterPublished,
	CounterSkipped,
	CounterFilteredAd,
	CounterFilteredDuplicate,
	CounterDelayed,
	CounterErrors,
}

// StatsSnapshot is the full counter set as persisted and reported
type StatsSnapshot struct {
	StartedAt time.Time
	Counters  map[Counter]int64
	BySource  map[string]map[Counter]int64
}

// NewStatsSnapshot returns a zeroed snapshot starting now
func NewStatsSnapshot(now time.Time) *StatsSnapshot {
	counters := make(map[Counter]int64, len(AllCounters))
	for _, c := range AllCounters {
		counters[c] = 0
	}
	return &StatsSnapshot{
		StartedAt: now,
		Counters:  counters,
		BySource:  make(map[string]map[Counter]int64),
	}
}
