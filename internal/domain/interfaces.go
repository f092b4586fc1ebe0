package domain

import (
	"context"
	"time"
)

// SuggestionStore хранит предложения и отвечает за уникальность и атомарный переход статуса.
type SuggestionStore interface {
	Create(ctx context.Context, s NewSuggestion) (Suggestion, error)
	FindByPresentation(ctx context.Context, presentationID string) (Suggestion, error)
	// TransitionIfPending применяет решение только если запись всё ещё pending.
	// Возвращает ErrAlreadyDecided без изменений, если решение уже принято.
	TransitionIfPending(ctx context.Context, t Transition) (Suggestion, error)
}

// ChannelConfigProvider возвращает настройки канала. ok=false означает, что канал не управляется ботом.
type ChannelConfigProvider interface {
	Lookup(ctx context.Context, guildID, channelID string) (cfg ChannelConfig, ok bool, err error)
}

// ChannelConfigStore управляет настройками каналов.
type ChannelConfigStore interface {
	ChannelConfigProvider
	// Insert создаёт настройку, если её ещё нет. created=false означает конфликт.
	Insert(ctx context.Context, cfg ChannelConfig) (created bool, err error)
	Upsert(ctx context.Context, cfg ChannelConfig) (ChannelConfig, error)
	Delete(ctx context.Context, guildID, channelID string) error
	ListByGuild(ctx context.Context, guildID string) ([]ChannelConfig, error)
}

// Presenter отрисовывает предложение во внешнем транспорте и возвращает идентификатор сообщения.
type Presenter interface {
	Present(ctx context.Context, req PresentationRequest) (presentationID string, err error)
}

// Notifier доставляет автору уведомление о решении.
type Notifier interface {
	Notify(ctx context.Context, req NotificationRequest) error
}

// NotificationQueue: очередь уведомлений для отдельного воркера.
type NotificationQueue interface {
	Enqueue(ctx context.Context, job NotificationJob) error
	Receive(ctx context.Context) (NotificationJob, AckFunc, error)
}

// AckFunc подтверждает обработку задачи или возвращает её в очередь.
type AckFunc func(success bool) error

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) error
}
