package suggestions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/metrics"
)

const (
	presentationTitle = "Новое предложение ✏️"
	pendingLabel      = "Ожидает решения ⏳"
)

var (
	// ErrInternalConsistency: карточка уже связана с другой записью. Не повторяется.
	ErrInternalConsistency = errors.New("presentation already tracked")
	// ErrOrphanedPresentation: карточка опубликована, но запись не создана.
	// Повторная обработка того же сообщения опубликовала бы вторую карточку.
	ErrOrphanedPresentation = errors.New("presentation published without record")
)

// SubmissionEvent: входящий текст в канале.
type SubmissionEvent struct {
	GuildID    string
	ChannelID  string
	AuthorID   string
	AuthorTag  string
	AuthorIcon string
	Text       string
}

// BuildPresentation описывает карточку нового предложения.
func BuildPresentation(ev SubmissionEvent, cfg domain.ChannelConfig, now func() time.Time) domain.PresentationRequest {
	return domain.PresentationRequest{
		GuildID:     ev.GuildID,
		ChannelID:   ev.ChannelID,
		AuthorID:    ev.AuthorID,
		AuthorTag:   ev.AuthorTag,
		AuthorIcon:  ev.AuthorIcon,
		Title:       presentationTitle,
		Body:        ev.Text,
		StatusLabel: pendingLabel,
		Emojis:      cfg.Emojis,
		SubmittedAt: now(),
	}
}

// Ingest превращает сообщение в управляемом канале в предложение.
// Сначала карточка публикуется в транспорте, затем создаётся запись с её идентификатором.
func (s *Service) Ingest(ctx context.Context, ev SubmissionEvent, presenter domain.Presenter) (domain.Suggestion, domain.PresentationRequest, error) {
	cfg, ok, err := s.channels.Lookup(ctx, ev.GuildID, ev.ChannelID)
	if err != nil {
		return domain.Suggestion{}, domain.PresentationRequest{}, fmt.Errorf("настройка канала: %w", err)
	}
	if !ok || strings.TrimSpace(ev.Text) == "" {
		metrics.IngestSkipped.Inc()
		return domain.Suggestion{}, domain.PresentationRequest{}, domain.ErrSkipped
	}

	req := BuildPresentation(ev, cfg, s.now)
	presentationID, err := presenter.Present(ctx, req)
	if err != nil {
		return domain.Suggestion{}, req, fmt.Errorf("публикация карточки: %w", err)
	}

	suggestion, err := s.store.Create(ctx, domain.NewSuggestion{
		GuildID:        ev.GuildID,
		AuthorID:       ev.AuthorID,
		ChannelID:      ev.ChannelID,
		PresentationID: presentationID,
		Content:        ev.Text,
	})
	if errors.Is(err, domain.ErrDuplicatePresentation) {
		s.log.Error().Str("presentation_id", presentationID).Msg("ingest: карточка уже связана с предложением")
		return domain.Suggestion{}, req, fmt.Errorf("%w: %w: %s", ErrOrphanedPresentation, ErrInternalConsistency, presentationID)
	}
	if err != nil {
		// карточка осталась без записи, решения по ней вернут ErrUnknownSuggestion
		s.log.Error().Err(err).Str("presentation_id", presentationID).Msg("ingest: не удалось сохранить предложение")
		return domain.Suggestion{}, req, fmt.Errorf("%w: сохранение предложения: %w", ErrOrphanedPresentation, err)
	}
	metrics.SuggestionsCreated.Inc()
	s.log.Info().
		Str("suggestion_id", suggestion.ID).
		Str("presentation_id", presentationID).
		Str("channel_id", ev.ChannelID).
		Msg("ingest: предложение создано")
	return suggestion, req, nil
}
