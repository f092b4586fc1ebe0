package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"suggestion-bot/internal/adapters/bot"
	"suggestion-bot/internal/adapters/discord"
	"suggestion-bot/internal/adapters/repo"
	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/cache"
	"suggestion-bot/internal/infra/config"
	"suggestion-bot/internal/infra/log"
	"suggestion-bot/internal/infra/metrics"
	"suggestion-bot/internal/infra/queue"
	"suggestion-bot/internal/usecase/notifications"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		var err error
		redisClient, err = cache.Connect(cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к Redis")
		}
		defer redisClient.Close()
	}
	notifyQueue, closeQueue, err := queue.Open(cfg.Notify.Backend, redisClient, cfg.RabbitURL, cfg.Notify.QueueKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось открыть очередь уведомлений")
	}
	defer closeQueue()
	if notifyQueue == nil {
		logger.Fatal().Str("notify_backend", cfg.Notify.Backend).Msg("для воркера нужен NOTIFY_BACKEND=redis или rabbitmq")
	}

	backend, err := repo.Open(ctx, cfg.Storage.Driver, cfg.Storage.PGDSN, cfg.Storage.SQLitePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось открыть хранилище")
	}
	defer backend.Close()

	deliverers := make(map[domain.Platform]domain.Notifier)
	if cfg.Discord.Token != "" {
		session, err := discordgo.New("Bot " + cfg.Discord.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось создать сессию Discord")
		}
		deliverers[domain.PlatformDiscord] = discord.NewDMNotifier(session)
	}
	if cfg.Telegram.Token != "" {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось создать бота")
		}
		deliverers[domain.PlatformTelegram] = bot.NewNotifier(botAPI)
	}

	metrics.StartServer(ctx, log.Component(logger, "metrics"), cfg.MetricsAddr)
	worker := notifications.NewWorker(notifyQueue, deliverers, backend.Metrics, log.Component(logger, "notifier"))
	logger.Info().Int("platforms", len(deliverers)).Msg("notifier: старт")
	if err := worker.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("notifier: остановлен с ошибкой")
	}
	logger.Info().Msg("notifier: остановка")
}
