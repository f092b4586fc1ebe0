package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"suggestion-bot/internal/adapters/discord"
	"suggestion-bot/internal/adapters/repo"
	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/cache"
	"suggestion-bot/internal/infra/config"
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

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать сессию Discord")
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	var notifier domain.Notifier = discord.NewDMNotifier(session)
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

	h := discord.NewHandler(session, suggestionService, channelService, kv, cfg.Cache.IngestTTL, log.Component(logger, "discord"))
	h.Register(session)

	if err := session.Open(); err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к шлюзу Discord")
	}
	defer session.Close()

	appID := cfg.Discord.AppID
	if appID == "" {
		appID = session.State.User.ID
	}
	guilds := cfg.Discord.GuildIDs
	if len(guilds) == 0 {
		guilds = []string{""}
	}
	for _, guildID := range guilds {
		for _, cmd := range discord.Commands {
			if _, err := session.ApplicationCommandCreate(appID, guildID, cmd); err != nil {
				logger.Fatal().Err(err).Str("command", cmd.Name).Str("guild_id", guildID).Msg("не удалось зарегистрировать команду")
			}
		}
	}

	metrics.StartServer(ctx, log.Component(logger, "metrics"), cfg.MetricsAddr)
	logger.Info().Str("notify_backend", cfg.Notify.Backend).Msg("discord-gateway запущен")
	<-ctx.Done()
	logger.Info().Msg("остановка discord-gateway")
}
