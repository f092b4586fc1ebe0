package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"suggestion-bot/internal/adapters/admin"
	"suggestion-bot/internal/adapters/repo"
	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/cache"
	"suggestion-bot/internal/infra/config"
	httpinfra "suggestion-bot/internal/infra/http"
	"suggestion-bot/internal/infra/log"
	"suggestion-bot/internal/infra/metrics"
	"suggestion-bot/internal/usecase/channels"
	"suggestion-bot/internal/usecase/suggestions"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.AdminToken == "" {
		logger.Warn().Msg("api: ADMIN_TOKEN не задан, API закрыт")
	}

	backend, err := repo.Open(ctx, cfg.Storage.Driver, cfg.Storage.PGDSN, cfg.Storage.SQLitePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к хранилищу")
	}
	defer backend.Close()

	var channelStore domain.ChannelConfigStore = backend.Channels
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: не удалось подключиться к Redis")
		}
		defer client.Close()
		// шлюзы читают настройки через тот же кэш, поэтому изменения инвалидируют его
		channelStore = repo.NewCachedChannels(backend.Channels, cache.NewRedis(client), cfg.Cache.ChannelTTL, log.Component(logger, "channel_cache"))
	}

	suggestionService := suggestions.NewService(backend.Suggestions, channelStore, nil, log.Component(logger, "suggestions"))
	srv := httpinfra.NewServer(log.Component(logger, "http"))
	admin.NewHandler(channels.NewService(channelStore), suggestionService, log.Component(logger, "admin")).Mount(srv.Router, cfg.AdminToken)

	go func() {
		logger.Info().Msg("api: старт")
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("api: сервер остановлен")
			stop()
		}
	}()
	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
