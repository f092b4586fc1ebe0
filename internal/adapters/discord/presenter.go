package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/metrics"
)

// Presenter публикует карточки предложений в канале.
type Presenter struct {
	session Session
	log     zerolog.Logger
}

var _ domain.Presenter = (*Presenter)(nil)

// NewPresenter создаёт презентер.
func NewPresenter(session Session, log zerolog.Logger) *Presenter {
	return &Presenter{session: session, log: log}
}

// Present отправляет карточку с кнопками и ставит две реакции. Возвращает ID сообщения.
func (p *Presenter) Present(ctx context.Context, req domain.PresentationRequest) (string, error) {
	start := time.Now()
	msg, err := p.session.ChannelMessageSendComplex(req.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{BuildSuggestionEmbed(req)},
		Components: BuildDecisionButtons(),
	}, discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "send_message", "", start, err)
	if err != nil {
		return "", fmt.Errorf("discord send: %w", err)
	}
	for _, emoji := range []string{req.Emojis.First, req.Emojis.Second} {
		id := ReactionID(emoji)
		if id == "" {
			continue
		}
		if err := p.session.MessageReactionAdd(msg.ChannelID, msg.ID, id, discordgo.WithContext(ctx)); err != nil {
			p.log.Warn().Err(err).Str("emoji", emoji).Str("message_id", msg.ID).Msg("discord: не удалось поставить реакцию")
		}
	}
	return msg.ID, nil
}

// Update перерисовывает карточку после решения. orig может быть nil, тогда сообщение запрашивается заново.
func (p *Presenter) Update(ctx context.Context, orig *discordgo.Message, upd domain.PresentationUpdateRequest) error {
	if orig == nil || len(orig.Embeds) == 0 {
		start := time.Now()
		msg, err := p.session.ChannelMessage(upd.ChannelID, upd.PresentationID, discordgo.WithContext(ctx))
		metrics.ObserveNetworkRequest("discord", "get_message", "", start, err)
		if err != nil {
			return fmt.Errorf("discord get message: %w", err)
		}
		orig = msg
	}
	var base *discordgo.MessageEmbed
	if len(orig.Embeds) > 0 {
		base = orig.Embeds[0]
	}
	embeds := []*discordgo.MessageEmbed{ApplyUpdate(base, upd)}
	components := BuildClosedButtons()
	start := time.Now()
	_, err := p.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    upd.ChannelID,
		ID:         upd.PresentationID,
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "edit_message", "", start, err)
	if err != nil {
		return fmt.Errorf("discord edit: %w", err)
	}
	return nil
}
