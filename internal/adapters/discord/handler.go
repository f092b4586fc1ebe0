package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/usecase/channels"
	"suggestion-bot/internal/usecase/suggestions"
)

const (
	eventTimeout  = 10 * time.Second
	notifyTimeout = 15 * time.Second
)

// Handler обрабатывает события шлюза Discord.
type Handler struct {
	session   Session
	presenter *Presenter
	svc       *suggestions.Service
	channels  *channels.Service
	dedup     domain.Cache
	dedupTTL  time.Duration
	notifyTTL time.Duration
	log       zerolog.Logger
}

// NewHandler создаёт обработчик. dedup может быть nil.
func NewHandler(session Session, svc *suggestions.Service, channelUC *channels.Service, dedup domain.Cache, dedupTTL time.Duration, log zerolog.Logger) *Handler {
	return &Handler{
		session:   session,
		presenter: NewPresenter(session, log),
		svc:       svc,
		channels:  channelUC,
		dedup:     dedup,
		dedupTTL:  dedupTTL,
		notifyTTL: notifyTimeout,
		log:       log,
	}
}

// Register подписывает обработчик на события сессии.
func (h *Handler) Register(s *discordgo.Session) {
	s.AddHandler(h.OnMessageCreate)
	s.AddHandler(h.OnInteractionCreate)
}

// OnMessageCreate превращает сообщение в управляемом канале в карточку предложения.
func (h *Handler) OnMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	h.handleMessage(ctx, m.Message)
}

func (h *Handler) handleMessage(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	ingest := func() error {
		_, _, err := h.svc.Ingest(ctx, suggestions.SubmissionEvent{
			GuildID:    m.GuildID,
			ChannelID:  m.ChannelID,
			AuthorID:   m.Author.ID,
			AuthorTag:  m.Author.Username,
			AuthorIcon: m.Author.AvatarURL(""),
			Text:       m.Content,
		}, h.presenter)
		if errors.Is(err, domain.ErrSkipped) {
			return nil
		}
		if errors.Is(err, suggestions.ErrOrphanedPresentation) {
			// ключ дедупликации остаётся: повтор события опубликовал бы вторую карточку
			h.log.Error().Err(err).Str("message_id", m.ID).Msg("discord: карточка опубликована без записи")
			return nil
		}
		if err != nil {
			return err
		}
		if err := h.session.ChannelMessageDelete(m.ChannelID, m.ID, discordgo.WithContext(ctx)); err != nil {
			h.log.Warn().Err(err).Str("message_id", m.ID).Msg("discord: не удалось удалить исходное сообщение")
		}
		return nil
	}

	var err error
	if h.dedup != nil {
		err = h.dedup.Once(ctx, "ingest:discord:"+m.ID, h.dedupTTL, ingest)
	} else {
		err = ingest()
	}
	if err != nil {
		h.log.Error().Err(err).Str("message_id", m.ID).Str("channel_id", m.ChannelID).Msg("discord: ошибка обработки сообщения")
	}
}

// OnInteractionCreate маршрутизирует команды, кнопки и формы.
func (h *Handler) OnInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	h.handleInteraction(ctx, i.Interaction)
}

func (h *Handler) handleInteraction(ctx context.Context, i *discordgo.Interaction) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if i.ApplicationCommandData().Name == setupCommandName {
			h.handleSetup(ctx, i)
		}
	case discordgo.InteractionMessageComponent:
		if strings.HasPrefix(i.MessageComponentData().CustomID, buttonPrefix+":") {
			h.handleButton(ctx, i)
		}
	case discordgo.InteractionModalSubmit:
		if strings.HasPrefix(i.ModalSubmitData().CustomID, modalPrefix+":") {
			h.handleModal(ctx, i)
		}
	}
}

func (h *Handler) intent(ctx context.Context, i *discordgo.Interaction, presentationID string, action domain.DecisionAction) (suggestions.DecisionIntent, error) {
	if i.Member == nil || i.Member.User == nil {
		return suggestions.DecisionIntent{}, domain.ErrNotAuthorized
	}
	cfg, err := h.svc.ChannelConfig(ctx, i.GuildID, i.ChannelID)
	if err != nil {
		return suggestions.DecisionIntent{}, err
	}
	return suggestions.DecisionIntent{
		PresentationID: presentationID,
		ActorID:        i.Member.User.ID,
		ActorRoles:     domain.RoleSet(i.Member.Roles),
		Config:         cfg,
		Action:         action,
	}, nil
}

func (h *Handler) handleButton(ctx context.Context, i *discordgo.Interaction) {
	action, err := ParseButtonID(i.MessageComponentData().CustomID)
	if err != nil || i.Message == nil {
		h.respond(ctx, i, ephemeral(suggestions.UserMessage(domain.ErrInvalidAction)))
		return
	}
	intent, err := h.intent(ctx, i, i.Message.ID, action)
	if err == nil {
		var prompt domain.ReasonPrompt
		prompt, err = h.svc.RequestReason(ctx, intent)
		if err == nil {
			h.respond(ctx, i, BuildReasonModal(prompt, suggestions.MaxReasonLength))
			return
		}
	}
	h.respond(ctx, i, ephemeral(suggestions.UserMessage(err)))
}

func (h *Handler) handleModal(ctx context.Context, i *discordgo.Interaction) {
	data := i.ModalSubmitData()
	action, presentationID, err := ParseModalID(data.CustomID)
	if err != nil {
		h.respond(ctx, i, ephemeral(suggestions.UserMessage(err)))
		return
	}
	h.respond(ctx, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})

	intent, err := h.intent(ctx, i, presentationID, action)
	if err != nil {
		h.followup(ctx, i, suggestions.UserMessage(err))
		return
	}
	out, err := h.svc.Decide(ctx, suggestions.DecisionCommand{
		DecisionIntent: intent,
		Reason:         ModalReason(data),
		Platform:       domain.PlatformDiscord,
	})
	if err != nil {
		h.followup(ctx, i, suggestions.UserMessage(err))
		return
	}
	var orig *discordgo.Message
	if i.Message != nil && i.Message.ID == presentationID {
		orig = i.Message
	}
	if err := h.presenter.Update(ctx, orig, out.Update); err != nil {
		h.log.Error().Err(err).Str("presentation_id", presentationID).Msg("discord: не удалось обновить карточку")
	}
	h.followup(ctx, i, fmt.Sprintf("Предложение %s.", suggestions.OutcomeLabel(out.Suggestion.Status)))

	// уведомление идёт последним и не зависит от срока события
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.notifyTTL)
	defer cancel()
	if !h.svc.Notify(notifyCtx, out) {
		h.followup(ctx, i, "Автора не удалось уведомить.")
	}
}

func (h *Handler) handleSetup(ctx context.Context, i *discordgo.Interaction) {
	if i.Member == nil {
		h.respond(ctx, i, ephemeral(channels.ErrNotAdmin.Error()))
		return
	}
	data := i.ApplicationCommandData()
	cmd := channels.SetupCommand{
		GuildID:    i.GuildID,
		ActorAdmin: i.Member.Permissions&discordgo.PermissionAdministrator != 0,
	}
	for _, opt := range data.Options {
		switch opt.Name {
		case "channel":
			cmd.ChannelID = opt.ChannelValue(nil).ID
		case "emoji1":
			cmd.Emoji1 = opt.StringValue()
		case "emoji2":
			cmd.Emoji2 = opt.StringValue()
		case "role":
			cmd.RoleID = opt.RoleValue(nil, i.GuildID).ID
		}
	}
	if data.Resolved != nil {
		if ch, ok := data.Resolved.Channels[cmd.ChannelID]; ok && ch != nil {
			cmd.ChannelName = ch.Name
		}
	}

	cfg, err := h.channels.Setup(ctx, cmd)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, domain.ErrStoreUnavailable) {
			msg = suggestions.UserMessage(err)
			h.log.Error().Err(err).Str("guild_id", i.GuildID).Msg("discord: ошибка настройки канала")
		}
		h.respond(ctx, i, ephemeral(msg))
		return
	}
	h.log.Info().Str("guild_id", cfg.GuildID).Str("channel_id", cfg.ChannelID).Msg("discord: канал предложений настроен")
	h.respond(ctx, i, ephemeral(fmt.Sprintf("Канал <#%s> настроен для предложений.", cfg.ChannelID)))
}

func (h *Handler) respond(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) {
	if err := h.session.InteractionRespond(i, resp, discordgo.WithContext(ctx)); err != nil {
		h.log.Error().Err(err).Str("interaction_id", i.ID).Msg("discord: не удалось ответить на взаимодействие")
	}
}

func (h *Handler) followup(ctx context.Context, i *discordgo.Interaction, content string) {
	_, err := h.session.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}, discordgo.WithContext(ctx))
	if err != nil {
		h.log.Error().Err(err).Str("interaction_id", i.ID).Msg("discord: не удалось отправить ответ")
	}
}
