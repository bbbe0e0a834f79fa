package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"telepost/internal/biz/domain"
	"telepost/internal/biz/repo"
)

// PublisherUsecase performs the side-effecting send to the destination
// channel with the format-failure fallback and asset cleanup.
type PublisherUsecase struct {
	publishRepo repo.PublishRepo
	assetRepo   repo.AssetRepo
	stats       *StatsUsecase

	dest   string
	footer string
}

// NewPublisherUsecase creates a publisher for the destination channel
func NewPublisherUsecase(
	publishRepo repo.PublishRepo,
	assetRepo repo.AssetRepo,
	stats *StatsUsecase,
	dest, footer string,
) *PublisherUsecase {
	return &PublisherUsecase{
		publishRepo: publishRepo,
		assetRepo:   assetRepo,
		stats:       stats,
		dest:        dest,
		footer:      footer,
	}
}

var htmlTags = regexp.MustCompile(`<[^>]+>`)

// Publish sends the post to the destination. On a formatting rejection it
// retries exactly once with the markup stripped to plain text. On success
// it deletes the post's asset files (best effort) and bumps `published`;
// on any other failure it leaves the assets intact, bumps `errors`, and
// returns the failure for the caller to decide on re-queueing.
func (uc *PublisherUsecase) Publish(ctx context.Context, post *domain.PendingPost) error {
	caption := uc.withFooter(post.Text)

	// Missing files are skipped within their group; publish proceeds
	// with what is left.
	assets := make([]domain.MediaAsset, 0, len(post.Media))
	for _, asset := range post.Media {
		if !uc.assetRepo.Exists(asset.Path) {
			slog.Warn("[Publisher] Asset file missing, skipping",
				slog.String("post", post.ID),
				slog.String("path", asset.Path))
			continue
		}
		assets = append(assets, asset)
	}

	err := uc.send(ctx, assets, caption, false)
	if errors.Is(err, repo.ErrBadFormat) {
		slog.Warn("[Publisher] Formatting rejected, retrying as plain text",
			slog.String("post", post.ID))
		err = uc.send(ctx, assets, htmlTags.ReplaceAllString(caption, ""), true)
	}
	if err != nil {
		uc.stats.Increment(ctx, domain.CounterErrors, post.Source)
		return fmt.Errorf("publish %s: %w", post.ID, err)
	}

	uc.releaseAssets(post)
	uc.stats.Increment(ctx, domain.CounterPublished, post.Source)
	slog.Info("[Publisher] Published",
		slog.String("post", post.ID),
		slog.String("source", post.Source),
		slog.Int("assets", len(assets)))
	return nil
}

func (uc *PublisherUsecase) send(ctx context.Context, assets []domain.MediaAsset, caption string, plain bool) error {
	switch len(assets) {
	case 0:
		return uc.publishRepo.SendText(ctx, uc.dest, caption, plain)
	case 1:
		return uc.publishRepo.SendMedia(ctx, uc.dest, assets[0], caption, plain)
	default:
		return uc.publishRepo.SendMediaGroup(ctx, uc.dest, assets, caption, plain)
	}
}

// releaseAssets deletes the post's asset files. Deletion failure is
// logged, not escalated.
func (uc *PublisherUsecase) releaseAssets(post *domain.PendingPost) {
	for _, asset := range post.Media {
		if err := uc.assetRepo.Remove(asset.Path); err != nil {
			slog.Warn("[Publisher] Failed to delete asset",
				slog.String("path", asset.Path),
				slog.String("error", err.Error()))
		}
	}
}

func (uc *PublisherUsecase) withFooter(text string) string {
	if uc.footer == "" {
		return text
	}
	if text == "" {
		return uc.footer
	}
	return text + "\n\n" + uc.footer
}
