package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"suggestion-bot/internal/adapters/telegram"
	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/metrics"
	"suggestion-bot/internal/usecase/suggestions"
)

// Notifier пишет автору в личные сообщения. Пользователь должен был начать диалог с ботом.
type Notifier struct {
	api API
}

var _ domain.Notifier = (*Notifier)(nil)

// NewNotifier создаёт нотификатор.
func NewNotifier(api API) *Notifier {
	return &Notifier{api: api}
}

// NotificationText формирует текст уведомления.
func NotificationText(req domain.NotificationRequest) string {
	text := fmt.Sprintf("Ваше предложение %s.", suggestions.OutcomeLabel(req.Outcome))
	if req.Reason != "" {
		text += "\n" + reasonPrefix + req.Reason
	}
	return text
}

// Notify реализует domain.Notifier.
func (n *Notifier) Notify(_ context.Context, req domain.NotificationRequest) error {
	userID, err := strconv.ParseInt(req.AuthorID, 10, 64)
	if err != nil {
		return fmt.Errorf("некорректный автор %q: %w", req.AuthorID, err)
	}
	for _, part := range telegram.SplitMessage(NotificationText(req)) {
		start := time.Now()
		_, err := n.api.Send(tgbotapi.NewMessage(userID, part))
		metrics.ObserveNetworkRequest("telegram_bot", "notify", req.AuthorID, start, err)
		if err != nil {
			return fmt.Errorf("telegram notify: %w", err)
		}
	}
	return nil
}
