package data

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"telepost/internal/biz/domain"
	"telepost/internal/biz/repo"
)

// ========== Publish transport ==========

// publishRepo implements the destination-channel transport on the Bot API
type publishRepo struct {
	bot *tgbotapi.BotAPI
}

// NewPublishRepo creates a new publish transport
func NewPublishRepo(bot *tgbotapi.BotAPI) repo.PublishRepo {
	return &publishRepo{bot: bot}
}

func (r *publishRepo) SendText(ctx context.Context, dest, text string, plain bool) error {
	msg := tgbotapi.NewMessageToChannel(dest, text)
	if !plain {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	_, err := r.bot.Send(msg)
	return classifySendError(err)
}

func (r *publishRepo) SendMedia(ctx context.Context, dest string, asset domain.MediaAsset, caption string, plain bool) error {
	base := tgbotapi.BaseChat{ChannelUsername: dest}
	file := tgbotapi.BaseFile{BaseChat: base, File: tgbotapi.FilePath(asset.Path)}
	parseMode := ""
	if !plain {
		parseMode = tgbotapi.ModeHTML
	}

	var cfg tgbotapi.Chattable
	switch asset.Kind {
	case domain.MediaPhoto:
		cfg = tgbotapi.PhotoConfig{BaseFile: file, Caption: caption, ParseMode: parseMode}
	case domain.MediaVideo:
		cfg = tgbotapi.VideoConfig{BaseFile: file, Caption: caption, ParseMode: parseMode}
	case domain.MediaGif:
		cfg = tgbotapi.AnimationConfig{BaseFile: file, Caption: caption, ParseMode: parseMode}
	default:
		cfg = tgbotapi.DocumentConfig{BaseFile: file, Caption: caption, ParseMode: parseMode}
	}

	_, err := r.bot.Send(cfg)
	return classifySendError(err)
}

func (r *publishRepo) SendMediaGroup(ctx context.Context, dest string, assets []domain.MediaAsset, caption string, plain bool) error {
	parseMode := ""
	if !plain {
		parseMode = tgbotapi.ModeHTML
	}

	media := make([]interface{}, 0, len(assets))
	for i, asset := range assets {
		itemCaption := ""
		if i == 0 {
			// Caption goes on the first element only
			itemCaption = caption
		}
		switch asset.Kind {
		case domain.MediaPhoto:
			m := tgbotapi.NewInputMediaPhoto(tgbotapi.FilePath(asset.Path))
			m.Caption = itemCaption
			m.ParseMode = parseMode
			media = append(media, m)
		case domain.MediaDocument:
			m := tgbotapi.NewInputMediaDocument(tgbotapi.FilePath(asset.Path))
			m.Caption = itemCaption
			m.ParseMode = parseMode
			media = append(media, m)
		default:
			// Animations cannot appear inside an album; send them as video
			m := tgbotapi.NewInputMediaVideo(tgbotapi.FilePath(asset.Path))
			m.Caption = itemCaption
			m.ParseMode = parseMode
			media = append(media, m)
		}
	}

	cfg := tgbotapi.MediaGroupConfig{ChannelUsername: dest, Media: media}
	_, err := r.bot.SendMediaGroup(cfg)
	return classifySendError(err)
}

// classifySendError maps a Bot API entity-parsing rejection onto
// ErrBadFormat so the publisher can retry in plain text.
func classifySendError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "can't parse entities") {
		return fmt.Errorf("%w: %v", repo.ErrBadFormat, err)
	}
	return err
}

// ========== Admin review channel ==========

// reviewRepo delivers previews and notifications to the designated reviewer
type reviewRepo struct {
	bot     *tgbotapi.BotAPI
	adminID int64
}

// NewReviewRepo creates a new review channel adapter
func NewReviewRepo(bot *tgbotapi.BotAPI, adminID int64) repo.ReviewRepo {
	return &reviewRepo{bot: bot, adminID: adminID}
}

func (r *reviewRepo) SendPreview(ctx context.Context, post *domain.PendingPost) error {
	caption := "📥 Новый пост (без текста)"
	if post.Text != "" {
		caption = "📥 Новый пост\n\n" + post.Text
	}
	if len(post.Media) > 1 {
		caption += fmt.Sprintf("\n\n📎 Вложений: %d", len(post.Media))
	}

	keyboard := reviewKeyboard(post.Token)

	if len(post.Media) == 0 {
		msg := tgbotapi.NewMessage(r.adminID, caption)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = keyboard
		if _, err := r.bot.Send(msg); err != nil {
			// Rewrite output is untrusted markup; fall back to plain
			msg.ParseMode = ""
			_, err = r.bot.Send(msg)
			return err
		}
		return nil
	}

	// The album preview shows the first asset; the attachment count is in
	// the caption.
	first := post.Media[0]
	base := tgbotapi.BaseChat{ChatID: r.adminID, ReplyMarkup: keyboard}
	file := tgbotapi.BaseFile{BaseChat: base, File: tgbotapi.FilePath(first.Path)}

	var cfg tgbotapi.Chattable
	switch first.Kind {
	case domain.MediaPhoto:
		cfg = tgbotapi.PhotoConfig{BaseFile: file, Caption: caption, ParseMode: tgbotapi.ModeHTML}
	case domain.MediaVideo:
		cfg = tgbotapi.VideoConfig{BaseFile: file, Caption: caption, ParseMode: tgbotapi.ModeHTML}
	case domain.MediaGif:
		cfg = tgbotapi.AnimationConfig{BaseFile: file, Caption: caption, ParseMode: tgbotapi.ModeHTML}
	default:
		cfg = tgbotapi.DocumentConfig{BaseFile: file, Caption: caption, ParseMode: tgbotapi.ModeHTML}
	}

	_, err := r.bot.Send(cfg)
	return err
}

func (r *reviewRepo) Notify(ctx context.Context, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(r.adminID, text))
	return err
}

// reviewKeyboard builds the action controls for one pending post. Actions
// carry the post's opaque correlation token and are matched exactly.
func reviewKeyboard(token string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Опубликовать", "publish:"+token),
			tgbotapi.NewInlineKeyboardButtonData("❌ Пропустить", "skip:"+token),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏰ Отложить", "delay:"+token),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Редактировать", "edit:"+token),
		),
	)
}

// ========== Feed media download ==========

// feedRepo downloads feed attachments into the local asset store
type feedRepo struct {
	bot   *tgbotapi.BotAPI
	store *AssetStore
}

// NewFeedRepo creates a new feed download adapter
func NewFeedRepo(bot *tgbotapi.BotAPI, store *AssetStore) repo.FeedRepo {
	return &feedRepo{bot: bot, store: store}
}

func (r *feedRepo) Download(ctx context.Context, ref domain.MediaRef, postID string) (*domain.MediaAsset, error) {
	file, err := r.bot.GetFile(tgbotapi.FileConfig{FileID: ref.FileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(r.bot.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	body := bufio.NewReader(resp.Body)
	kind, ext := resolveKind(ref, body)

	name := fmt.Sprintf("%s_%s%s", postID, uuid.NewString()[:8], ext)
	path, err := r.store.Save(name, body)
	if err != nil {
		return nil, err
	}
	return &domain.MediaAsset{Path: path, Kind: kind}, nil
}

// resolveKind picks the asset kind and file extension, sniffing the
// content for documents whose mime type is missing or generic.
func resolveKind(ref domain.MediaRef, body *bufio.Reader) (domain.MediaKind, string) {
	switch ref.Kind {
	case domain.MediaPhoto:
		return domain.MediaPhoto, ".jpg"
	case domain.MediaVideo:
		return domain.MediaVideo, ".mp4"
	case domain.MediaGif:
		return domain.MediaGif, ".mp4" // Telegram serves animations as mp4
	}

	switch {
	case strings.HasPrefix(ref.MimeType, "image"):
		return domain.MediaPhoto, ".jpg"
	case strings.HasPrefix(ref.MimeType, "video"):
		return domain.MediaVideo, ".mp4"
	}

	// Sniff the head bytes of an untyped document
	if head, err := body.Peek(261); err == nil || len(head) > 0 {
		if t, err := filetype.Match(head); err == nil && t != filetype.Unknown {
			ext := "." + t.Extension
			switch {
			case strings.HasPrefix(t.MIME.Value, "image"):
				return domain.MediaPhoto, ext
			case strings.HasPrefix(t.MIME.Value, "video"):
				return domain.MediaVideo, ext
			}
			return domain.MediaDocument, ext
		}
	}
	return domain.MediaDocument, ".bin"
}
