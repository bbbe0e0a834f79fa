package domain

import "time"

// ScheduleEntry pairs a pending post with a future publish time.
// At most one entry exists per post id.
type ScheduleEntry struct {
	Post  *PendingPost
	DueAt time.Time
}

// Due reports whether the entry should be published at the given time
func (e *ScheduleEntry) Due(now time.Time) bool {
	return !e.DueAt.After(now)
}
