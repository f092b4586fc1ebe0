package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"suggestion-bot/internal/adapters/bot"
	"suggestion-bot/internal/adapters/repo"
	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/cache"
	"suggestion-bot/internal/infra/config"
	httpinfra "suggestion-bot/internal/infra/http"
	"suggestion-bot/internal/infra/log"
	"suggestion-bot/internal/infra/metrics"
	"suggestion-bot/internal/infra/queue"
	"suggestion-bot/internal/usecase/channels"
	"suggestion-bot/internal/usecase/suggestions"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := repo.Open(ctx, cfg.Storage.Driver, cfg.Storage.PGDSN, cfg.Storage.SQLitePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось открыть хранилище")
	}
	defer backend.Close()

	var redisClient *redis.Client
	var kv domain.Cache = cache.NewLocal()
	if cfg.RedisAddr != "" {
		redisClient, err = cache.Connect(cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к Redis")
		}
		defer redisClient.Close()
		kv = cache.NewRedis(redisClient)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	if cfg.Telegram.WebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.Telegram.WebhookURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("некорректный адрес вебхука")
		}
		if _, err := botAPI.Request(wh); err != nil {
			logger.Fatal().Err(err).Msg("не удалось установить вебхук")
		}
	}

	var notifier domain.Notifier = bot.NewNotifier(botAPI)
	notifyQueue, closeQueue, err := queue.Open(cfg.Notify.Backend, redisClient, cfg.RabbitURL, cfg.Notify.QueueKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось открыть очередь уведомлений")
	}
	defer closeQueue()
	if notifyQueue != nil {
		notifier = queue.NewNotifier(notifyQueue)
	}

	channelStore := repo.NewCachedChannels(backend.Channels, kv, cfg.Cache.ChannelTTL, log.Component(logger, "channel_cache"))
	suggestionService := suggestions.NewService(backend.Suggestions, channelStore, notifier, log.Component(logger, "suggestions"))
	channelService := channels.NewService(channelStore)
	h := bot.NewHandler(botAPI, suggestionService, channelService, kv, cfg.Cache.IngestTTL, cfg.ReasonPromptTTL, log.Component(logger, "telegram"))

	srv := httpinfra.NewServer(logger)
	srv.Router.Post("/bot/webhook", func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		logger.Info().Msg("бот-гейтвей запущен")
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("остановка бота")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
