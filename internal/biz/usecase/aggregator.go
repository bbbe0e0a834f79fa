package usecase

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"telepost/internal/biz/domain"
	"telepost/internal/biz/repo"
)

// AggregatorConfig contains aggregator configuration
type AggregatorConfig struct {
	Debounce time.Duration // window collecting members of one media group
}

// DefaultAggregatorConfig returns default aggregator configuration
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{Debounce: 10 * time.Second}
}

// AggregatorUsecase receives raw feed events, buffers grouped submissions
// behind a debounce timer, and emits one logical submission per group or
// single item into the filters and on into the moderation queue.
type AggregatorUsecase struct {
	filter     *FilterUsecase
	rewrite    *RewriteUsecase
	feedRepo   repo.FeedRepo
	reviewRepo repo.ReviewRepo
	queue      *QueueUsecase
	stats      *StatsUsecase
	config     AggregatorConfig

	mu     sync.Mutex
	groups map[string][]domain.SourceItem
}

// NewAggregatorUsecase creates a new ingestion aggregator
func NewAggregatorUsecase(
	filter *FilterUsecase,
	rewrite *RewriteUsecase,
	feedRepo repo.FeedRepo,
	reviewRepo repo.ReviewRepo,
	queue *QueueUsecase,
	stats *StatsUsecase,
	config AggregatorConfig,
) *AggregatorUsecase {
	return &AggregatorUsecase{
		filter:     filter,
		rewrite:    rewrite,
		feedRepo:   feedRepo,
		reviewRepo: reviewRepo,
		queue:      queue,
		stats:      stats,
		config:     config,
		groups:     make(map[string][]domain.SourceItem),
	}
}

// Ingest accepts one raw feed event. Ungrouped items go straight through
// filtering; grouped items are buffered until the debounce window for
// their group elapses.
func (uc *AggregatorUsecase) Ingest(ctx context.Context, item domain.SourceItem) {
	uc.stats.Increment(ctx, domain.CounterReceived, item.Source)

	if item.GroupID == "" {
		uc.process(ctx, []domain.SourceItem{item}, domain.PostID(item.ID, item.Timestamp))
		return
	}

	uc.mu.Lock()
	_, buffered := uc.groups[item.GroupID]
	uc.groups[item.GroupID] = append(uc.groups[item.GroupID], item)
	uc.mu.Unlock()

	// One timer per group id: armed on first arrival only
	if !buffered {
		groupID := item.GroupID
		time.AfterFunc(uc.config.Debounce, func() {
			uc.flushGroup(groupID)
		})
	}
}

// flushGroup drains one group buffer and forwards it as a single logical
// submission.
func (uc *AggregatorUsecase) flushGroup(groupID string) {
	uc.mu.Lock()
	items, ok := uc.groups[groupID]
	if !ok {
		uc.mu.Unlock()
		// Buffer already reclaimed (janitor sweep); nothing to flush
		slog.Warn("[Aggregator] Group buffer already drained", slog.String("group", groupID))
		return
	}
	delete(uc.groups, groupID)
	uc.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	uc.process(context.Background(), items, domain.GroupPostID(groupID, items[0].Timestamp))
}

// process runs one logical submission (a single item or a flushed group)
// through the gate, the filters, the rewrite, and asset download, then
// stages the resulting post for review.
func (uc *AggregatorUsecase) process(ctx context.Context, items []domain.SourceItem, id string) {
	source := items[0].Source

	// Representative text: first non-empty, in native sequence order
	text := ""
	for _, item := range items {
		if item.Text != "" {
			text = item.Text
			break
		}
	}

	var refs []domain.MediaRef
	for _, item := range items {
		refs = append(refs, item.Media...)
	}

	if !uc.filter.PassesGate(text, len(refs)) {
		slog.Debug("[Aggregator] Rejected by minimum-content gate",
			slog.String("id", id), slog.Int("textLen", len(text)))
		return
	}
	if uc.filter.IsAd(text) {
		uc.stats.Increment(ctx, domain.CounterFilteredAd, source)
		slog.Info("[Aggregator] Rejected as ad", slog.String("id", id), slog.String("source", source))
		return
	}
	if text != "" && uc.filter.IsDuplicate(text) {
		uc.stats.Increment(ctx, domain.CounterFilteredDuplicate, source)
		slog.Info("[Aggregator] Rejected as duplicate", slog.String("id", id), slog.String("source", source))
		return
	}

	rewritten := ""
	if text != "" {
		rewritten = uc.rewrite.Rewrite(ctx, text)
	}

	var assets []domain.MediaAsset
	for _, ref := range refs {
		asset, err := uc.feedRepo.Download(ctx, ref, id)
		if err != nil {
			slog.Warn("[Aggregator] Media download failed",
				slog.String("id", id), slog.String("error", err.Error()))
			continue
		}
		assets = append(assets, *asset)
	}

	post := &domain.PendingPost{
		ID:           id,
		Token:        uuid.NewString(),
		Text:         rewritten,
		OriginalText: text,
		Source:       source,
		Media:        assets,
		Status:       domain.StatusAwaitingReview,
		CreatedAt:    time.Now(),
	}
	if !post.HasContent() {
		slog.Info("[Aggregator] No content after processing", slog.String("id", id))
		return
	}

	uc.queue.Add(post)

	if err := uc.reviewRepo.SendPreview(ctx, post); err != nil {
		// Post stays queued; admin can still find it in the next janitor report
		slog.Error("[Aggregator] Failed to send preview",
			slog.String("id", id), slog.String("error", err.Error()))
	}
}

// Reset drops all group buffers (janitor sweep). In-flight debounce
// timers fire against empty buffers and are ignored.
func (uc *AggregatorUsecase) Reset() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.groups = make(map[string][]domain.SourceItem)
}

// BufferedGroups returns the number of groups currently buffered
func (uc *AggregatorUsecase) BufferedGroups() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.groups)
}
