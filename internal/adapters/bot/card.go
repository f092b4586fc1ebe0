package bot

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"suggestion-bot/internal/adapters/telegram"
	"suggestion-bot/internal/domain"
)

const (
	callbackPrefix = "suggestion:"
	callbackClosed = callbackPrefix + "closed"
	statusPrefix   = "Статус: "
	reasonPrefix   = "Причина: "
)

// PresentationID формирует идентификатор карточки: чат и сообщение.
func PresentationID(chatID int64, messageID int) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.Itoa(messageID)
}

// ParsePresentationID разбирает идентификатор карточки.
func ParsePresentationID(id string) (int64, int, error) {
	rawChat, rawMsg, ok := strings.Cut(id, ":")
	if !ok {
		return 0, 0, fmt.Errorf("некорректный идентификатор карточки %q", id)
	}
	chatID, err := strconv.ParseInt(rawChat, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("некорректный чат в %q: %w", id, err)
	}
	msgID, err := strconv.Atoi(rawMsg)
	if err != nil {
		return 0, 0, fmt.Errorf("некорректное сообщение в %q: %w", id, err)
	}
	return chatID, msgID, nil
}

// RenderCard формирует текст карточки нового предложения.
func RenderCard(req domain.PresentationRequest) string {
	header := req.Title + "\n\n"
	footer := "\n\nАвтор: " + req.AuthorTag
	if req.Emojis.First != "" || req.Emojis.Second != "" {
		footer += fmt.Sprintf("\nГолосуйте: %s / %s", req.Emojis.First, req.Emojis.Second)
	}
	footer += "\n" + statusPrefix + req.StatusLabel
	budget := telegram.MessageLimit - utf8.RuneCountInString(header) - utf8.RuneCountInString(footer)
	return header + telegram.Truncate(req.Body, budget) + footer
}

// ApplyUpdate заменяет статус в тексте карточки и добавляет причину.
func ApplyUpdate(card string, upd domain.PresentationUpdateRequest) string {
	if idx := strings.LastIndex(card, "\n"+statusPrefix); idx >= 0 {
		card = card[:idx]
	}
	text := card + "\n" + statusPrefix + upd.StatusLabel
	if upd.Reason != "" {
		text += "\n" + reasonPrefix + upd.Reason
	}
	return telegram.Truncate(text, telegram.MessageLimit)
}

// DecisionKeyboard: кнопки «принять» и «отклонить».
func DecisionKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Принять", callbackPrefix+string(domain.ActionAccept)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", callbackPrefix+string(domain.ActionReject)),
		),
	)
}

// ClosedKeyboard заменяет кнопки решения после закрытия.
func ClosedKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Закрыто", callbackClosed),
		),
	)
}
