package discord

import (
	"fmt"
	"strings"

	"suggestion-bot/internal/domain"
)

const (
	buttonPrefix  = "suggestion"
	modalPrefix   = "suggestion_modal"
	closedID      = "suggestion:closed"
	reasonInputID = "reason"
)

// ButtonID формирует custom_id кнопки решения. Идентификатор карточки берётся из самого сообщения.
func ButtonID(action domain.DecisionAction) string {
	return buttonPrefix + ":" + string(action)
}

// ParseButtonID разбирает custom_id кнопки решения.
func ParseButtonID(customID string) (domain.DecisionAction, error) {
	prefix, raw, ok := strings.Cut(customID, ":")
	if !ok || prefix != buttonPrefix {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidAction, customID)
	}
	return domain.ParseAction(raw)
}

// ModalID формирует custom_id модального окна с причиной.
func ModalID(action domain.DecisionAction, presentationID string) string {
	return modalPrefix + ":" + string(action) + ":" + presentationID
}

// ParseModalID разбирает custom_id модального окна.
func ParseModalID(customID string) (domain.DecisionAction, string, error) {
	parts := strings.SplitN(customID, ":", 3)
	if len(parts) != 3 || parts[0] != modalPrefix || parts[2] == "" {
		return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidAction, customID)
	}
	action, err := domain.ParseAction(parts[1])
	if err != nil {
		return "", "", err
	}
	return action, parts[2], nil
}

// ReactionID приводит эмодзи к виду, который принимает API реакций.
// Кастомные эмодзи приходят как <:name:id> или <a:name:id>.
func ReactionID(emoji string) string {
	e := strings.TrimSpace(emoji)
	if strings.HasPrefix(e, "<") && strings.HasSuffix(e, ">") {
		e = strings.TrimSuffix(strings.TrimPrefix(e, "<"), ">")
		e = strings.TrimPrefix(e, "a:")
		e = strings.TrimPrefix(e, ":")
	}
	return e
}
