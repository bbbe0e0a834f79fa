package repo

import (
	"context"

	"telepost/internal/biz/domain"
)

// ReviewRepo is the admin review channel: it renders previews with action
// controls to the designated reviewer and delivers plain notifications
// (confirmations, alerts, janitor summaries).
type ReviewRepo interface {
	SendPreview(ctx context.Context, post *domain.PendingPost) error
	Notify(ctx context.Context, text string) error
}
