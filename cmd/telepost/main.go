package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"telepost/internal/biz/usecase"
	"telepost/internal/conf"
	"telepost/internal/data"
	"telepost/internal/logging"
	"telepost/internal/server"
	"telepost/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logging.InitLogger(cfg.Debug)

	// Bot API client; a failed token is a startup error
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Fatalf("Failed to authorize bot: %v", err)
	}
	slog.Info("[Main] Authorized", slog.String("bot", bot.Self.UserName))

	// Data layer
	assetStore, err := data.NewAssetStore(cfg.Pipeline.MediaDir)
	if err != nil {
		log.Fatalf("Failed to create asset store: %v", err)
	}
	statsRepo, err := data.NewStatsRepo(cfg.Pipeline.StatsDBPath)
	if err != nil {
		log.Fatalf("Failed to open stats store: %v", err)
	}
	publishRepo := data.NewPublishRepo(bot)
	reviewRepo := data.NewReviewRepo(bot, cfg.Telegram.AdminID)
	feedRepo := data.NewFeedRepo(bot, assetStore)
	rewriteRepo := data.NewRewriteRepo(cfg.OpenAI.APIKey, cfg.OpenAI.Model)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Usecase layer
	statsUC, err := usecase.NewStatsUsecase(ctx, statsRepo)
	if err != nil {
		log.Fatalf("Failed to load stats: %v", err)
	}
	filterUC := usecase.NewFilterUsecase()
	rewriteUC := usecase.NewRewriteUsecase(rewriteRepo, cfg.Telegram.SourceChannels)
	publisherUC := usecase.NewPublisherUsecase(publishRepo, assetStore, statsUC,
		cfg.Telegram.TargetChannel, cfg.Pipeline.Footer)

	queueCfg := usecase.DefaultQueueConfig()
	queueCfg.DelayOffset = cfg.Pipeline.DelayOffset
	queueUC := usecase.NewQueueUsecase(publisherUC, statsUC, assetStore, queueCfg)

	aggCfg := usecase.DefaultAggregatorConfig()
	aggCfg.Debounce = cfg.Pipeline.Debounce
	aggregatorUC := usecase.NewAggregatorUsecase(filterUC, rewriteUC, feedRepo,
		reviewRepo, queueUC, statsUC, aggCfg)

	// Service layer
	scheduler := service.NewScheduler(queueUC, reviewRepo, cfg.Pipeline.PollInterval)
	scheduler.Start(ctx)

	janitorCfg := service.DefaultJanitorConfig()
	janitorCfg.Schedule = cfg.Pipeline.JanitorSchedule
	janitorCfg.Retention = cfg.Pipeline.Retention
	janitor := service.NewJanitor(queueUC, aggregatorUC, filterUC, assetStore, reviewRepo, janitorCfg)
	if err := janitor.Start(); err != nil {
		log.Fatalf("Failed to start janitor: %v", err)
	}

	srv := server.NewTelegramServer(bot, aggregatorUC, queueUC, statsUC, reviewRepo,
		cfg.Telegram.AdminID, cfg.Telegram.SourceChannels)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("[Main] Shutting down")
		cancel()
		scheduler.Stop()
		janitor.Stop()
		if err := statsRepo.Close(); err != nil {
			slog.Warn("[Main] Failed to close stats store", slog.String("error", err.Error()))
		}
	}()

	slog.Info("[Main] Starting",
		slog.String("target", cfg.Telegram.TargetChannel),
		slog.Int("sources", len(cfg.Telegram.SourceChannels)))
	srv.Start(ctx)
}
