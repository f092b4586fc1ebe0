package channels

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"suggestion-bot/internal/domain"
)

var (
	ErrNotAdmin          = errors.New("команда доступна только администраторам")
	ErrAlreadyConfigured = errors.New("канал уже настроен")
	ErrInvalidEmoji      = errors.New("нужно указать две реакции")
	ErrInvalidRole       = errors.New("нужно указать роль модераторов")
	ErrInvalidChannel    = errors.New("некорректный канал")
)

// SetupCommand: регистрация канала предложений.
type SetupCommand struct {
	GuildID     string
	ChannelID   string
	ChannelName string
	Emoji1      string
	Emoji2      string
	RoleID      string
	ActorAdmin  bool
}

// Service управляет настройками каналов.
type Service struct {
	repo domain.ChannelConfigStore
}

// NewService создаёт новый сервис каналов.
func NewService(repo domain.ChannelConfigStore) *Service {
	return &Service{repo: repo}
}

// Normalize проверяет и очищает настройку канала.
func Normalize(cfg domain.ChannelConfig) (domain.ChannelConfig, error) {
	cfg.GuildID = strings.TrimSpace(cfg.GuildID)
	cfg.ChannelID = strings.TrimSpace(cfg.ChannelID)
	cfg.ChannelName = strings.TrimSpace(cfg.ChannelName)
	cfg.AllowedRoleID = strings.TrimSpace(cfg.AllowedRoleID)
	cfg.Emojis.First = strings.TrimSpace(cfg.Emojis.First)
	cfg.Emojis.Second = strings.TrimSpace(cfg.Emojis.Second)
	if cfg.GuildID == "" || cfg.ChannelID == "" {
		return domain.ChannelConfig{}, ErrInvalidChannel
	}
	if cfg.Emojis.First == "" || cfg.Emojis.Second == "" {
		return domain.ChannelConfig{}, ErrInvalidEmoji
	}
	if cfg.AllowedRoleID == "" {
		return domain.ChannelConfig{}, ErrInvalidRole
	}
	return cfg, nil
}

// Setup добавляет канал, если его ещё нет. Повторная регистрация возвращает ErrAlreadyConfigured.
func (s *Service) Setup(ctx context.Context, cmd SetupCommand) (domain.ChannelConfig, error) {
	if !cmd.ActorAdmin {
		return domain.ChannelConfig{}, ErrNotAdmin
	}
	cfg, err := Normalize(domain.ChannelConfig{
		GuildID:       cmd.GuildID,
		ChannelID:     cmd.ChannelID,
		ChannelName:   cmd.ChannelName,
		AllowedRoleID: cmd.RoleID,
		Emojis:        domain.EmojiPair{First: cmd.Emoji1, Second: cmd.Emoji2},
	})
	if err != nil {
		return domain.ChannelConfig{}, err
	}
	created, err := s.repo.Insert(ctx, cfg)
	if err != nil {
		return domain.ChannelConfig{}, fmt.Errorf("сохранение канала: %w", err)
	}
	if !created {
		return domain.ChannelConfig{}, ErrAlreadyConfigured
	}
	return cfg, nil
}

// Update создаёт или перезаписывает настройку канала.
func (s *Service) Update(ctx context.Context, cfg domain.ChannelConfig) (domain.ChannelConfig, error) {
	cfg, err := Normalize(cfg)
	if err != nil {
		return domain.ChannelConfig{}, err
	}
	saved, err := s.repo.Upsert(ctx, cfg)
	if err != nil {
		return domain.ChannelConfig{}, fmt.Errorf("сохранение канала: %w", err)
	}
	return saved, nil
}

// Remove отключает предложения в канале.
func (s *Service) Remove(ctx context.Context, guildID, channelID string) error {
	return s.repo.Delete(ctx, guildID, channelID)
}

// List возвращает каналы сервера.
func (s *Service) List(ctx context.Context, guildID string) ([]domain.ChannelConfig, error) {
	return s.repo.ListByGuild(ctx, guildID)
}
