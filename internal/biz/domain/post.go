package domain

import (
	"fmt"
	"time"
)

// MediaKind discriminates the supported attachment types
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaGif      MediaKind = "gif"
	MediaDocument MediaKind = "document"
)

// MediaRef references an attachment as delivered by the feed, before download
type MediaRef struct {
	Kind     MediaKind
	MimeType string
	FileID   string // feed-native file handle used for download
}

// MediaAsset is a downloaded attachment on the local filesystem.
// An asset is owned by exactly one PendingPost and its backing file is
// deleted exactly once: on publish, on skip, or by the janitor.
type MediaAsset struct {
	Path string
	Kind MediaKind
}

// SourceItem is one raw inbound submission from a feed
type SourceItem struct {
	ID        int64 // feed-native message id, also the group sort key
	Text      string
	Media     []MediaRef
	GroupID   string // non-empty when the source splits one post into several messages
	Source    string // feed identifier (channel username)
	Timestamp time.Time
}

// PostStatus represents the moderation state of a pending post
type PostStatus string

const (
	StatusAwaitingReview PostStatus = "awaiting_review"
	StatusAwaitingEdit   PostStatus = "awaiting_edit"
	StatusScheduled      PostStatus = "scheduled"
)

// PendingPost is the unit of moderation
type PendingPost struct {
	ID           string // derived from source item id + timestamp, or synthetic for groups
	Token        string // opaque correlation id for review actions, matched exactly
	Text         string // post-filter, post-rewrite, post-cleanup
	OriginalText string
	Source       string
	Media        []MediaAsset // ordered, possibly empty
	Status       PostStatus
	CreatedAt    time.Time
}

// HasContent reports whether the post carries anything publishable
func (p *PendingPost) HasContent() bool {
	return p.Text != "" || len(p.Media) > 0
}

// PostID derives the id for a single-item post
func PostID(sourceID int64, ts time.Time) string {
	return fmt.Sprintf("%d_%d", sourceID, ts.Unix())
}

// GroupPostID derives the synthetic id for a grouped post
func GroupPostID(groupID string, ts time.Time) string {
	return fmt.Sprintf("g%s_%d", groupID, ts.Unix())
}
