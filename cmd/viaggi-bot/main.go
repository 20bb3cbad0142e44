package main

import (
	"context"
	"errors"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"viaggi/internal/backend"
	"viaggi/internal/cache"
	"viaggi/internal/cli"
	"viaggi/internal/log"
	"viaggi/internal/services"
	"viaggi/internal/session"
	"viaggi/internal/telegram"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.TelegramToken == "" {
		logger.Error("TELEGRAM_TOKEN is required")
		os.Exit(1)
	}

	engine := cli.InitEngine(logger, cfg)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Error("Failed to connect to Telegram", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Authorized on Telegram", "bot", api.Self.UserName)

	sessions := session.NewStore(engine, session.Config{TTL: cfg.SessionTTL, MaxSessions: cfg.SessionMax}, logger)
	expenses := services.NewExpenseService(sessions, result.Backend, result.Publisher, logger)
	bot := telegram.New(api, sessions, expenses, telegram.Config{ChatTTL: cfg.SessionTTL}, logger)

	caches := cache.NewManager(logger)
	caches.Register(sessions)
	caches.Register(bot.Chats())
	caches.StartCleanup(time.Minute)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		api.StopReceivingUpdates()
	})

	updates := tgbotapi.NewUpdate(0)
	updates.Timeout = cfg.TelegramTimeout
	runErr := bot.Run(ctx, api.GetUpdatesChan(updates))

	caches.Stop()
	if result.Cleanup != nil {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, telegram.ErrClosed) {
		logger.Error("Bot stopped with error", log.FieldError, runErr)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Bot stopped gracefully")
}
