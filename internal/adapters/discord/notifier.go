package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/metrics"
	"suggestion-bot/internal/usecase/suggestions"
)

// DMNotifier отправляет автору личное сообщение о решении.
type DMNotifier struct {
	session Session
}

var _ domain.Notifier = (*DMNotifier)(nil)

// NewDMNotifier создаёт нотификатор.
func NewDMNotifier(session Session) *DMNotifier {
	return &DMNotifier{session: session}
}

// NotificationText формирует текст личного сообщения.
func NotificationText(req domain.NotificationRequest) string {
	text := fmt.Sprintf("Ваше предложение в <#%s> %s.", req.ChannelID, suggestions.OutcomeLabel(req.Outcome))
	if req.Reason != "" {
		text += "\nПричина: " + req.Reason
	}
	return text
}

// Notify реализует domain.Notifier.
func (n *DMNotifier) Notify(ctx context.Context, req domain.NotificationRequest) error {
	start := time.Now()
	ch, err := n.session.UserChannelCreate(req.AuthorID, discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "dm_channel", "", start, err)
	if err != nil {
		return fmt.Errorf("discord dm channel: %w", err)
	}
	start = time.Now()
	_, err = n.session.ChannelMessageSend(ch.ID, NotificationText(req), discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "dm_send", "", start, err)
	if err != nil {
		return fmt.Errorf("discord dm send: %w", err)
	}
	return nil
}
