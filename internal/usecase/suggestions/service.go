package suggestions

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"suggestion-bot/internal/domain"
)

// MaxReasonLength ограничен размером поля embed в Discord.
const MaxReasonLength = 1024

// Service управляет жизненным циклом предложения.
type Service struct {
	store    domain.SuggestionStore
	channels domain.ChannelConfigProvider
	notifier domain.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewService создаёт сервис предложений. notifier может быть nil: тогда уведомления не отправляются.
func NewService(store domain.SuggestionStore, channels domain.ChannelConfigProvider, notifier domain.Notifier, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		channels: channels,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// ChannelConfig возвращает настройку канала для транспорта.
func (s *Service) ChannelConfig(ctx context.Context, guildID, channelID string) (*domain.ChannelConfig, error) {
	cfg, ok, err := s.channels.Lookup(ctx, guildID, channelID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

// Find возвращает предложение по идентификатору карточки.
func (s *Service) Find(ctx context.Context, presentationID string) (domain.Suggestion, error) {
	return s.store.FindByPresentation(ctx, presentationID)
}
