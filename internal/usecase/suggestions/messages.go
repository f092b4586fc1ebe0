package suggestions

import (
	"errors"
	"fmt"

	"suggestion-bot/internal/domain"
)

// UserMessage возвращает текст ошибки для модератора.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotAuthorized):
		return "У вас нет прав принимать решения в этом канале."
	case errors.Is(err, domain.ErrAlreadyDecided):
		return "Решение по этому предложению уже принято."
	case errors.Is(err, domain.ErrUnknownSuggestion):
		return "Предложение не найдено."
	case errors.Is(err, domain.ErrInvalidReason):
		return fmt.Sprintf("Причина не может быть пустой или длиннее %d символов.", MaxReasonLength)
	case errors.Is(err, domain.ErrInvalidAction):
		return "Неизвестное действие."
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "Хранилище временно недоступно, попробуйте позже."
	default:
		return "Что-то пошло не так, попробуйте позже."
	}
}

// OutcomeLabel возвращает подпись решения для уведомлений.
func OutcomeLabel(status domain.SuggestionStatus) string {
	switch status {
	case domain.StatusAccepted:
		return "принято"
	case domain.StatusRejected:
		return "отклонено"
	default:
		return "ожидает решения"
	}
}
