package suggestions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/metrics"
)

// DecisionIntent: нажатие кнопки «принять/отклонить» до ввода причины.
type DecisionIntent struct {
	PresentationID string
	ActorID        string
	ActorRoles     domain.RoleSet
	Config         *domain.ChannelConfig
	Action         domain.DecisionAction
}

// DecisionCommand: решение вместе с причиной.
type DecisionCommand struct {
	DecisionIntent
	Reason   string
	Platform domain.Platform
}

// Outcome: результат успешного решения.
type Outcome struct {
	Suggestion   domain.Suggestion
	Update       domain.PresentationUpdateRequest
	Notification domain.NotificationRequest
}

// RequestReason проверяет намерение и возвращает запрос причины.
// Ничего не сохраняет: между pending и терминальным статусом промежуточного состояния нет.
func (s *Service) RequestReason(ctx context.Context, intent DecisionIntent) (domain.ReasonPrompt, error) {
	if _, err := intent.Action.Status(); err != nil {
		return domain.ReasonPrompt{}, err
	}
	if !Authorize(intent.ActorRoles, intent.Config) {
		metrics.IncDecisionRejected("not_authorized")
		return domain.ReasonPrompt{}, domain.ErrNotAuthorized
	}
	current, err := s.store.FindByPresentation(ctx, intent.PresentationID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ReasonPrompt{}, domain.ErrUnknownSuggestion
	}
	if err != nil {
		return domain.ReasonPrompt{}, err
	}
	if current.Status.Terminal() {
		return domain.ReasonPrompt{}, domain.ErrAlreadyDecided
	}
	prompt := domain.ReasonPrompt{
		PresentationID: intent.PresentationID,
		Action:         intent.Action,
		Label:          "Укажите причину",
	}
	if intent.Action == domain.ActionAccept {
		prompt.Title = "Причина принятия"
	} else {
		prompt.Title = "Причина отклонения"
	}
	return prompt, nil
}

// ValidateReason проверяет причину решения. Причина сохраняется в том виде, в каком её ввёл модератор.
func ValidateReason(reason string) (string, error) {
	if strings.TrimSpace(reason) == "" || utf8.RuneCountInString(reason) > MaxReasonLength {
		return "", domain.ErrInvalidReason
	}
	return reason, nil
}

// Decide применяет решение модератора.
// Порядок: причина, права, атомарный переход. При ошибке на любом шаге хранилище не меняется.
// Уведомление автору не отправляется: транспорт вызывает Notify после обновления карточки и ответа модератору.
func (s *Service) Decide(ctx context.Context, cmd DecisionCommand) (Outcome, error) {
	logger := s.log.With().
		Str("presentation_id", cmd.PresentationID).
		Str("actor_id", cmd.ActorID).
		Str("action", string(cmd.Action)).
		Logger()

	status, err := cmd.Action.Status()
	if err != nil {
		return Outcome{}, err
	}
	reason, err := ValidateReason(cmd.Reason)
	if err != nil {
		metrics.IncDecisionRejected("invalid_reason")
		return Outcome{}, err
	}
	if !Authorize(cmd.ActorRoles, cmd.Config) {
		metrics.IncDecisionRejected("not_authorized")
		logger.Info().Msg("decision: нет прав")
		return Outcome{}, domain.ErrNotAuthorized
	}

	decided, err := s.store.TransitionIfPending(ctx, domain.Transition{
		PresentationID: cmd.PresentationID,
		Status:         status,
		Reason:         reason,
		DeciderID:      cmd.ActorID,
	})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		metrics.IncDecisionRejected("unknown")
		logger.Warn().Msg("decision: карточка не связана с предложением")
		return Outcome{}, domain.ErrUnknownSuggestion
	case errors.Is(err, domain.ErrAlreadyDecided):
		metrics.IncDecisionRejected("already_decided")
		logger.Info().Msg("decision: решение уже принято")
		return Outcome{}, domain.ErrAlreadyDecided
	case err != nil:
		logger.Error().Err(err).Msg("decision: ошибка хранилища")
		return Outcome{}, fmt.Errorf("переход статуса: %w", err)
	}

	metrics.IncDecision(string(decided.Status))
	logger.Info().Str("suggestion_id", decided.ID).Str("status", string(decided.Status)).Msg("decision: решение сохранено")

	return Outcome{
		Suggestion: decided,
		Update:     BuildUpdate(decided),
		Notification: domain.NotificationRequest{
			Platform:       cmd.Platform,
			AuthorID:       decided.AuthorID,
			GuildID:        decided.GuildID,
			ChannelID:      decided.ChannelID,
			PresentationID: decided.PresentationID,
			Outcome:        decided.Status,
			Reason:         decided.Reason,
		},
	}, nil
}

// Notify передаёт автору уведомление о решении. Ошибка не откатывает решение, возвращается false.
func (s *Service) Notify(ctx context.Context, out Outcome) bool {
	req := out.Notification
	if s.notifier == nil || req.AuthorID == "" {
		return false
	}
	if err := s.notifier.Notify(ctx, req); err != nil {
		metrics.IncNotificationFailure("emit")
		s.log.Warn().Err(err).
			Str("author_id", req.AuthorID).
			Str("presentation_id", req.PresentationID).
			Msg("decision: не удалось отправить уведомление")
		return false
	}
	return true
}

// BuildUpdate описывает финальный вид карточки.
func BuildUpdate(sg domain.Suggestion) domain.PresentationUpdateRequest {
	upd := domain.PresentationUpdateRequest{
		PresentationID: sg.PresentationID,
		ChannelID:      sg.ChannelID,
		Status:         sg.Status,
		Reason:         sg.Reason,
	}
	switch sg.Status {
	case domain.StatusAccepted:
		upd.StatusLabel = "Принято"
		upd.Color = domain.ColorAccepted
	case domain.StatusRejected:
		upd.StatusLabel = "Отклонено"
		upd.Color = domain.ColorRejected
	default:
		upd.StatusLabel = pendingLabel
		upd.Color = domain.ColorPending
	}
	return upd
}
