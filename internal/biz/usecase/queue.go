package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"telepost/internal/biz/domain"
	"telepost/internal/biz/repo"
)

// ErrNotFound is returned when a review action references a post that is
// missing or expired. Callers report it to the admin as a no-op.
var ErrNotFound = errors.New("post not found")

// QueueConfig contains moderation queue configuration
type QueueConfig struct {
	DelayOffset time.Duration // delay action schedules publish at now + offset
}

// DefaultQueueConfig returns default queue configuration
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{DelayOffset: 1 * time.Hour}
}

// PromotionResult reports the outcome of publishing one due schedule entry
type PromotionResult struct {
	Post *domain.PendingPost
	Err  error
}

// QueueUsecase holds the moderation queue: posts awaiting review or edit,
// the publish schedule, and per-admin edit sessions. Review actions
// resolve posts by their opaque correlation token, matched exactly.
type QueueUsecase struct {
	publisher *PublisherUsecase
	stats     *StatsUsecase
	assetRepo repo.AssetRepo
	config    QueueConfig

	mu       sync.Mutex
	posts    map[string]*domain.PendingPost  // post id -> post (AwaitingReview / AwaitingEdit)
	byToken  map[string]string               // correlation token -> post id
	schedule map[string]*domain.ScheduleEntry // post id -> scheduled publish
	editing  map[int64]string                // admin id -> post id being edited
}

// NewQueueUsecase creates a new moderation queue
func NewQueueUsecase(
	publisher *PublisherUsecase,
	stats *StatsUsecase,
	assetRepo repo.AssetRepo,
	config QueueConfig,
) *QueueUsecase {
	return &QueueUsecase{
		publisher: publisher,
		stats:     stats,
		assetRepo: assetRepo,
		config:    config,
		posts:     make(map[string]*domain.PendingPost),
		byToken:   make(map[string]string),
		schedule:  make(map[string]*domain.ScheduleEntry),
		editing:   make(map[int64]string),
	}
}

// Add inserts a new post in AwaitingReview
func (uc *QueueUsecase) Add(post *domain.PendingPost) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	post.Status = domain.StatusAwaitingReview
	uc.posts[post.ID] = post
	uc.byToken[post.Token] = post.ID
}

// Get resolves a post by its correlation token
func (uc *QueueUsecase) Get(token string) (*domain.PendingPost, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	post, ok := uc.lookup(token)
	if !ok {
		return nil, ErrNotFound
	}
	return post, nil
}

// Publish removes the post and sends it to the destination. The post is
// popped before the send; a failed send re-inserts it so it remains
// actionable, with its assets intact.
func (uc *QueueUsecase) Publish(ctx context.Context, token string) error {
	post, err := uc.pop(token)
	if err != nil {
		return err
	}

	if err := uc.publisher.Publish(ctx, post); err != nil {
		uc.mu.Lock()
		post.Status = domain.StatusAwaitingReview
		uc.posts[post.ID] = post
		uc.byToken[post.Token] = post.ID
		uc.mu.Unlock()
		return err
	}
	return nil
}

// Skip removes the post and deletes its assets
func (uc *QueueUsecase) Skip(ctx context.Context, token string) error {
	post, err := uc.pop(token)
	if err != nil {
		return err
	}
	uc.releaseAssets(post)
	uc.stats.Increment(ctx, domain.CounterSkipped, post.Source)
	slog.Info("[Queue] Skipped", slog.String("post", post.ID))
	return nil
}

// Delay moves the post from the review set onto the schedule,
// due at now + the configured offset.
func (uc *QueueUsecase) Delay(ctx context.Context, token string, now time.Time) (time.Time, error) {
	post, err := uc.pop(token)
	if err != nil {
		return time.Time{}, err
	}

	dueAt := now.Add(uc.config.DelayOffset)
	uc.mu.Lock()
	post.Status = domain.StatusScheduled
	uc.schedule[post.ID] = &domain.ScheduleEntry{Post: post, DueAt: dueAt}
	uc.mu.Unlock()

	uc.stats.Increment(ctx, domain.CounterDelayed, post.Source)
	slog.Info("[Queue] Delayed", slog.String("post", post.ID), slog.Time("due", dueAt))
	return dueAt, nil
}

// StartEdit marks the post as awaiting an edited text from the admin.
// Each admin has at most one edit session; starting a new one silently
// supersedes the previous, reverting that post to review.
func (uc *QueueUsecase) StartEdit(token string, adminID int64) (*domain.PendingPost, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	post, ok := uc.lookup(token)
	if !ok {
		return nil, ErrNotFound
	}

	if prevID, ok := uc.editing[adminID]; ok && prevID != post.ID {
		if prev, ok := uc.posts[prevID]; ok {
			prev.Status = domain.StatusAwaitingReview
		}
	}

	post.Status = domain.StatusAwaitingEdit
	uc.editing[adminID] = post.ID
	return post, nil
}

// CancelEdit aborts the admin's edit session for the given post
func (uc *QueueUsecase) CancelEdit(token string, adminID int64) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	post, ok := uc.lookup(token)
	if !ok {
		return ErrNotFound
	}
	if uc.editing[adminID] == post.ID {
		delete(uc.editing, adminID)
	}
	post.Status = domain.StatusAwaitingReview
	return nil
}

// SubmitEdit replaces the text of the post the admin is editing and
// returns it to review. The caller re-renders the preview.
func (uc *QueueUsecase) SubmitEdit(adminID int64, text string) (*domain.PendingPost, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	id, ok := uc.editing[adminID]
	if !ok {
		return nil, ErrNotFound
	}
	delete(uc.editing, adminID)

	post, ok := uc.posts[id]
	if !ok {
		// Post expired while the edit was pending
		return nil, ErrNotFound
	}
	post.Text = text
	post.Status = domain.StatusAwaitingReview
	return post, nil
}

// PromoteDue pops every due schedule entry and publishes it. Entries are
// removed from the schedule before the send so an overlapping tick or a
// racing manual action cannot double-publish. A failed entry is not
// retried; the caller alerts the admin.
func (uc *QueueUsecase) PromoteDue(ctx context.Context, now time.Time) []PromotionResult {
	uc.mu.Lock()
	var due []*domain.PendingPost
	for id, entry := range uc.schedule {
		if entry.Due(now) {
			due = append(due, entry.Post)
			delete(uc.schedule, id)
		}
	}
	uc.mu.Unlock()

	results := make([]PromotionResult, 0, len(due))
	for _, post := range due {
		err := uc.publisher.Publish(ctx, post)
		if err != nil {
			slog.Warn("[Queue] Scheduled publish failed, entry discarded",
				slog.String("post", post.ID),
				slog.String("error", err.Error()))
		}
		results = append(results, PromotionResult{Post: post, Err: err})
	}
	return results
}

// ExpireStale force-removes posts and schedule entries created before the
// given time, releasing their assets. Returns how many were purged.
func (uc *QueueUsecase) ExpireStale(ctx context.Context, before time.Time) int {
	uc.mu.Lock()
	var expired []*domain.PendingPost
	for id, post := range uc.posts {
		if post.CreatedAt.Before(before) {
			expired = append(expired, post)
			delete(uc.posts, id)
			delete(uc.byToken, post.Token)
		}
	}
	for id, entry := range uc.schedule {
		if entry.Post.CreatedAt.Before(before) {
			expired = append(expired, entry.Post)
			delete(uc.schedule, id)
		}
	}
	for adminID, id := range uc.editing {
		if _, ok := uc.posts[id]; !ok {
			delete(uc.editing, adminID)
		}
	}
	uc.mu.Unlock()

	for _, post := range expired {
		uc.releaseAssets(post)
	}
	if len(expired) > 0 {
		slog.Info("[Queue] Expired stale entries", slog.Int("count", len(expired)))
	}
	return len(expired)
}

// PendingCount returns the number of posts awaiting review or edit
func (uc *QueueUsecase) PendingCount() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.posts)
}

// ScheduledCount returns the number of schedule entries
func (uc *QueueUsecase) ScheduledCount() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.schedule)
}

// lookup resolves a token to a live post. Caller holds uc.mu.
func (uc *QueueUsecase) lookup(token string) (*domain.PendingPost, bool) {
	id, ok := uc.byToken[token]
	if !ok {
		return nil, false
	}
	post, ok := uc.posts[id]
	return post, ok
}

// pop removes the post from the review set before acting on it
func (uc *QueueUsecase) pop(token string) (*domain.PendingPost, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	post, ok := uc.lookup(token)
	if !ok {
		return nil, ErrNotFound
	}
	delete(uc.posts, post.ID)
	delete(uc.byToken, post.Token)
	for adminID, id := range uc.editing {
		if id == post.ID {
			delete(uc.editing, adminID)
		}
	}
	return post, nil
}

func (uc *QueueUsecase) releaseAssets(post *domain.PendingPost) {
	for _, asset := range post.Media {
		if err := uc.assetRepo.Remove(asset.Path); err != nil {
			slog.Warn("[Queue] Failed to delete asset",
				slog.String("path", asset.Path),
				slog.String("error", err.Error()))
		}
	}
}
