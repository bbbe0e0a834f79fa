package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telepost/internal/biz/domain"
	"telepost/internal/biz/repo"
	"telepost/internal/biz/usecase"
)

// TelegramServer consumes the bot update stream: channel posts from the
// monitored sources feed the aggregator, admin callbacks and commands
// drive the moderation queue.
type TelegramServer struct {
	bot        *tgbotapi.BotAPI
	aggregator *usecase.AggregatorUsecase
	queue      *usecase.QueueUsecase
	stats      *usecase.StatsUsecase
	reviewRepo repo.ReviewRepo

	adminID int64
	sources map[string]bool
}

// NewTelegramServer creates a new update-stream server
func NewTelegramServer(
	bot *tgbotapi.BotAPI,
	aggregator *usecase.AggregatorUsecase,
	queue *usecase.QueueUsecase,
	stats *usecase.StatsUsecase,
	reviewRepo repo.ReviewRepo,
	adminID int64,
	sourceChannels []string,
) *TelegramServer {
	sources := make(map[string]bool, len(sourceChannels))
	for _, s := range sourceChannels {
		sources[strings.ToLower(s)] = true
	}
	return &TelegramServer{
		bot:        bot,
		aggregator: aggregator,
		queue:      queue,
		stats:      stats,
		reviewRepo: reviewRepo,
		adminID:    adminID,
		sources:    sources,
	}
}

// Start consumes updates until the context is cancelled
func (s *TelegramServer) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := s.bot.GetUpdatesChan(u)

	slog.Info("[Server] Started", slog.String("bot", s.bot.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			s.bot.StopReceivingUpdates()
			slog.Info("[Server] Stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate dispatches one update. A failure on one item must never
// take the process down.
func (s *TelegramServer) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[Server] Panic while handling update", slog.Any("panic", r))
		}
	}()

	switch {
	case update.ChannelPost != nil:
		s.handleChannelPost(ctx, update.ChannelPost)
	case update.CallbackQuery != nil:
		s.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		s.handleMessage(ctx, update.Message)
	}
}

// handleChannelPost converts a monitored channel's post into a feed item
func (s *TelegramServer) handleChannelPost(ctx context.Context, msg *tgbotapi.Message) {
	source := strings.ToLower(msg.Chat.UserName)
	if !s.sources[source] {
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	item := domain.SourceItem{
		ID:        int64(msg.MessageID),
		Text:      text,
		Media:     mediaRefs(msg),
		GroupID:   msg.MediaGroupID,
		Source:    source,
		Timestamp: msg.Time(),
	}

	slog.Debug("[Server] Channel post",
		slog.String("source", source),
		slog.Int64("id", item.ID),
		slog.String("group", item.GroupID))

	s.aggregator.Ingest(ctx, item)
}

// mediaRefs extracts the attachment references from one message
func mediaRefs(msg *tgbotapi.Message) []domain.MediaRef {
	var refs []domain.MediaRef
	if len(msg.Photo) > 0 {
		// Last size variant is the largest
		refs = append(refs, domain.MediaRef{
			Kind:   domain.MediaPhoto,
			FileID: msg.Photo[len(msg.Photo)-1].FileID,
		})
	}
	if msg.Video != nil {
		refs = append(refs, domain.MediaRef{
			Kind:     domain.MediaVideo,
			MimeType: msg.Video.MimeType,
			FileID:   msg.Video.FileID,
		})
	}
	if msg.Animation != nil {
		refs = append(refs, domain.MediaRef{
			Kind:     domain.MediaGif,
			MimeType: msg.Animation.MimeType,
			FileID:   msg.Animation.FileID,
		})
	} else if msg.Document != nil {
		// Animations arrive with a shadow Document; only count real ones
		refs = append(refs, domain.MediaRef{
			Kind:     domain.MediaDocument,
			MimeType: msg.Document.MimeType,
			FileID:   msg.Document.FileID,
		})
	}
	return refs
}

// handleCallback executes one review action. Actions carry the post's
// correlation token; an expired token is reported as a no-op.
func (s *TelegramServer) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil || cq.From.ID != s.adminID {
		s.answerCallback(cq.ID, "")
		return
	}

	action, token, ok := strings.Cut(cq.Data, ":")
	if !ok {
		s.answerCallback(cq.ID, "")
		return
	}

	switch action {
	case "publish":
		err := s.queue.Publish(ctx, token)
		switch {
		case err == usecase.ErrNotFound:
			s.answerCallback(cq.ID, "Пост не найден")
		case err != nil:
			s.answerCallback(cq.ID, "Ошибка: "+truncate(err.Error(), 100))
		default:
			s.answerCallback(cq.ID, "✅ Опубликовано")
			s.removeKeyboard(cq)
		}

	case "skip":
		if err := s.queue.Skip(ctx, token); err != nil {
			s.answerCallback(cq.ID, "Пост не найден")
			return
		}
		s.answerCallback(cq.ID, "❌ Пропущено")
		s.removeKeyboard(cq)

	case "delay":
		dueAt, err := s.queue.Delay(ctx, token, time.Now())
		if err != nil {
			s.answerCallback(cq.ID, "Пост не найден")
			return
		}
		s.answerCallback(cq.ID, "⏰ Отложено до "+dueAt.Format("15:04"))
		s.removeKeyboard(cq)

	case "edit":
		if _, err := s.queue.StartEdit(token, cq.From.ID); err != nil {
			s.answerCallback(cq.ID, "Пост не найден")
			return
		}
		s.answerCallback(cq.ID, "")
		prompt := tgbotapi.NewMessage(s.adminID, "Отправь отредактированный текст ответом на это сообщение:")
		prompt.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Отмена", "cancel_edit:"+token),
			),
		)
		if _, err := s.bot.Send(prompt); err != nil {
			slog.Warn("[Server] Failed to send edit prompt", slog.String("error", err.Error()))
		}

	case "cancel_edit":
		if err := s.queue.CancelEdit(token, cq.From.ID); err != nil {
			s.answerCallback(cq.ID, "Пост не найден")
			return
		}
		s.answerCallback(cq.ID, "Отменено")
		if cq.Message != nil {
			// Drop the edit prompt itself
			_, _ = s.bot.Request(tgbotapi.NewDeleteMessage(cq.Message.Chat.ID, cq.Message.MessageID))
		}

	default:
		s.answerCallback(cq.ID, "")
	}
}

// handleMessage processes admin commands and pending edit submissions
func (s *TelegramServer) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.ID != s.adminID {
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			s.reply("Бот запущен. Жду новости из каналов.")
		case "stats":
			s.reply(s.stats.Format())
		case "reset_stats":
			s.stats.Reset(ctx)
			s.reply("Статистика сброшена.")
		}
		return
	}

	if msg.Text == "" {
		return
	}

	// Any non-command text from the admin is an edit submission when a
	// session is open; otherwise it is ignored.
	post, err := s.queue.SubmitEdit(msg.From.ID, msg.Text)
	if err != nil {
		return
	}

	s.reply("Текст обновлён.")
	if err := s.reviewRepo.SendPreview(ctx, post); err != nil {
		slog.Warn("[Server] Failed to re-send preview",
			slog.String("post", post.ID), slog.String("error", err.Error()))
	}
}

func (s *TelegramServer) reply(text string) {
	if _, err := s.bot.Send(tgbotapi.NewMessage(s.adminID, text)); err != nil {
		slog.Warn("[Server] Failed to reply", slog.String("error", err.Error()))
	}
}

func (s *TelegramServer) answerCallback(id, text string) {
	if _, err := s.bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		slog.Warn("[Server] Failed to answer callback", slog.String("error", err.Error()))
	}
}

// removeKeyboard strips the action buttons off an actioned preview
func (s *TelegramServer) removeKeyboard(cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(cq.Message.Chat.ID, cq.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := s.bot.Request(edit); err != nil {
		slog.Debug("[Server] Failed to remove keyboard", slog.String("error", err.Error()))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
