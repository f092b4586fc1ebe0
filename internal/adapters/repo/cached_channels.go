package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"suggestion-bot/internal/domain"
)

// CachedChannels кэширует настройки каналов поверх основного хранилища.
// Отсутствие настройки тоже кэшируется, чтобы каждое сообщение в чужом канале не ходило в БД.
type CachedChannels struct {
	domain.ChannelConfigStore
	cache domain.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

type cachedChannel struct {
	Found  bool                 `json:"found"`
	Config domain.ChannelConfig `json:"config"`
}

var _ domain.ChannelConfigStore = (*CachedChannels)(nil)

// NewCachedChannels оборачивает store. Ошибки кэша не ломают чтение.
func NewCachedChannels(store domain.ChannelConfigStore, cache domain.Cache, ttl time.Duration, log zerolog.Logger) *CachedChannels {
	return &CachedChannels{ChannelConfigStore: store, cache: cache, ttl: ttl, log: log}
}

func channelCacheKey(guildID, channelID string) string {
	return "channel_config:" + guildID + ":" + channelID
}

// Lookup реализует domain.ChannelConfigProvider.
func (c *CachedChannels) Lookup(ctx context.Context, guildID, channelID string) (domain.ChannelConfig, bool, error) {
	key := channelCacheKey(guildID, channelID)
	if data, err := c.cache.Get(ctx, key); err == nil {
		var entry cachedChannel
		if err := json.Unmarshal(data, &entry); err == nil {
			return entry.Config, entry.Found, nil
		}
	}
	cfg, ok, err := c.ChannelConfigStore.Lookup(ctx, guildID, channelID)
	if err != nil {
		return domain.ChannelConfig{}, false, err
	}
	if data, err := json.Marshal(cachedChannel{Found: ok, Config: cfg}); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("channel cache: не удалось сохранить")
		}
	}
	return cfg, ok, nil
}

// Insert реализует domain.ChannelConfigStore.
func (c *CachedChannels) Insert(ctx context.Context, cfg domain.ChannelConfig) (bool, error) {
	created, err := c.ChannelConfigStore.Insert(ctx, cfg)
	c.invalidate(ctx, cfg.GuildID, cfg.ChannelID)
	return created, err
}

// Upsert реализует domain.ChannelConfigStore.
func (c *CachedChannels) Upsert(ctx context.Context, cfg domain.ChannelConfig) (domain.ChannelConfig, error) {
	saved, err := c.ChannelConfigStore.Upsert(ctx, cfg)
	c.invalidate(ctx, cfg.GuildID, cfg.ChannelID)
	return saved, err
}

// Delete реализует domain.ChannelConfigStore.
func (c *CachedChannels) Delete(ctx context.Context, guildID, channelID string) error {
	err := c.ChannelConfigStore.Delete(ctx, guildID, channelID)
	c.invalidate(ctx, guildID, channelID)
	return err
}

func (c *CachedChannels) invalidate(ctx context.Context, guildID, channelID string) {
	if err := c.cache.Del(ctx, channelCacheKey(guildID, channelID)); err != nil {
		c.log.Warn().Err(err).Str("guild_id", guildID).Str("channel_id", channelID).Msg("channel cache: не удалось сбросить")
	}
}
