package repo

import (
	"context"

	"telepost/internal/biz/domain"
)

// FeedRepo is the inbound feed interface.
// Event delivery itself is push-based (the server wires feed updates into
// the aggregator); this interface covers the attachment download step.
type FeedRepo interface {
	// Download fetches one attachment into the local asset store.
	// The postID names the destination file.
	Download(ctx context.Context, ref domain.MediaRef, postID string) (*domain.MediaAsset, error)
}
