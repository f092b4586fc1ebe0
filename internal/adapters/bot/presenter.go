package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/metrics"
)

// Presenter публикует карточки предложений в группе.
type Presenter struct {
	api API
}

var _ domain.Presenter = (*Presenter)(nil)

// NewPresenter создаёт презентер.
func NewPresenter(api API) *Presenter {
	return &Presenter{api: api}
}

// Present отправляет карточку с кнопками решения.
func (p *Presenter) Present(_ context.Context, req domain.PresentationRequest) (string, error) {
	chatID, err := strconv.ParseInt(req.ChannelID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("некорректный чат %q: %w", req.ChannelID, err)
	}
	msg := tgbotapi.NewMessage(chatID, RenderCard(req))
	msg.ReplyMarkup = DecisionKeyboard()
	start := time.Now()
	sent, err := p.api.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", "send_card", req.ChannelID, start, err)
	if err != nil {
		return "", fmt.Errorf("telegram send: %w", err)
	}
	return PresentationID(chatID, sent.MessageID), nil
}

// Update перерисовывает карточку после решения.
func (p *Presenter) Update(_ context.Context, card string, upd domain.PresentationUpdateRequest) error {
	chatID, msgID, err := ParsePresentationID(upd.PresentationID)
	if err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, ApplyUpdate(card, upd), ClosedKeyboard())
	start := time.Now()
	_, err = p.api.Request(edit)
	metrics.ObserveNetworkRequest("telegram_bot", "edit_card", upd.ChannelID, start, err)
	if err != nil {
		return fmt.Errorf("telegram edit: %w", err)
	}
	return nil
}
