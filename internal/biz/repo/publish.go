package repo

import (
	"context"
	"errors"

	"telepost/internal/biz/domain"
)

// ErrBadFormat is returned by PublishRepo when the destination rejects
// the rich-text markup, as opposed to any other delivery failure. The
// distinction drives the publisher's one-shot plain-text retry.
var ErrBadFormat = errors.New("destination rejected message formatting")

// PublishRepo performs the side-effecting send to the destination channel
type PublishRepo interface {
	// SendText sends a text-only message. plain disables rich-text parsing.
	SendText(ctx context.Context, dest, text string, plain bool) error

	// SendMedia sends a single attachment with the full caption.
	SendMedia(ctx context.Context, dest string, asset domain.MediaAsset, caption string, plain bool) error

	// SendMediaGroup sends several attachments as one grouped submission
	// with the caption attached only to the first.
	SendMediaGroup(ctx context.Context, dest string, assets []domain.MediaAsset, caption string, plain bool) error
}
