package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"suggestion-bot/internal/adapters/telegram"
	"suggestion-bot/internal/domain"
	"suggestion-bot/internal/infra/metrics"
	"suggestion-bot/internal/usecase/channels"
	"suggestion-bot/internal/usecase/suggestions"
)

const (
	notifyTimeout = 15 * time.Second
	// promptMarker завершает текст запроса причины, по нему узнаются ответы на устаревшие запросы.
	promptMarker = "в ответ на это сообщение."
	stalePrompt  = "Запрос причины устарел или адресован другому модератору. Нажмите кнопку на карточке ещё раз."
)

// Handler обслуживает вебхук бота.
type Handler struct {
	api       API
	presenter *Presenter
	svc       *suggestions.Service
	channels  *channels.Service
	dedup     domain.Cache
	dedupTTL  time.Duration
	pending   *pendingReasons
	log       zerolog.Logger
}

// NewHandler создаёт обработчик. dedup может быть nil.
func NewHandler(api API, svc *suggestions.Service, channelUC *channels.Service, dedup domain.Cache, dedupTTL, promptTTL time.Duration, log zerolog.Logger) *Handler {
	return &Handler{
		api:       api,
		presenter: NewPresenter(api),
		svc:       svc,
		channels:  channelUC,
		dedup:     dedup,
		dedupTTL:  dedupTTL,
		pending:   newPendingReasons(promptTTL),
		log:       log,
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	} else if upd.CallbackQuery != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.IsBot || msg.Chat == nil {
		return
	}
	if msg.Chat.IsPrivate() {
		if msg.IsCommand() && msg.Command() == "start" {
			h.reply(msg.Chat.ID, "Здесь будут приходить уведомления о решениях по вашим предложениям.")
		}
		return
	}
	if msg.IsCommand() {
		switch msg.Command() {
		case "setup_suggestions":
			h.handleSetup(ctx, msg)
		case "remove_suggestions":
			h.handleRemove(ctx, msg)
		}
		return
	}
	if msg.ReplyToMessage != nil {
		if h.tryDecide(ctx, msg) {
			return
		}
		if isReasonPrompt(msg.ReplyToMessage) {
			h.reply(msg.Chat.ID, stalePrompt)
			return
		}
	}
	h.handleSubmission(ctx, msg)
}

func (h *Handler) handleSubmission(ctx context.Context, msg *tgbotapi.Message) {
	chat := strconv.FormatInt(msg.Chat.ID, 10)
	ingest := func() error {
		_, _, err := h.svc.Ingest(ctx, suggestions.SubmissionEvent{
			GuildID:   chat,
			ChannelID: chat,
			AuthorID:  strconv.FormatInt(msg.From.ID, 10),
			AuthorTag: displayName(msg.From),
			Text:      msg.Text,
		}, h.presenter)
		if errors.Is(err, domain.ErrSkipped) {
			return nil
		}
		if errors.Is(err, suggestions.ErrOrphanedPresentation) {
			// ключ дедупликации остаётся: повтор события опубликовал бы вторую карточку
			h.log.Error().Err(err).Int("message_id", msg.MessageID).Msg("telegram: карточка опубликована без записи")
			return nil
		}
		if err != nil {
			return err
		}
		h.request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID), "delete_message", chat)
		return nil
	}

	var err error
	if h.dedup != nil {
		err = h.dedup.Once(ctx, "ingest:telegram:"+PresentationID(msg.Chat.ID, msg.MessageID), h.dedupTTL, ingest)
	} else {
		err = ingest()
	}
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Int("message_id", msg.MessageID).Msg("telegram: ошибка обработки сообщения")
	}
}

func (h *Handler) intent(ctx context.Context, chatID, userID int64, presentationID string, action domain.DecisionAction) (suggestions.DecisionIntent, error) {
	chat := strconv.FormatInt(chatID, 10)
	cfg, err := h.svc.ChannelConfig(ctx, chat, chat)
	if err != nil {
		return suggestions.DecisionIntent{}, err
	}
	roles, err := h.roles(chatID, userID)
	if err != nil {
		return suggestions.DecisionIntent{}, err
	}
	return suggestions.DecisionIntent{
		PresentationID: presentationID,
		ActorID:        strconv.FormatInt(userID, 10),
		ActorRoles:     roles,
		Config:         cfg,
		Action:         action,
	}, nil
}

func (h *Handler) roles(chatID, userID int64) (domain.RoleSet, error) {
	start := time.Now()
	member, err := h.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	metrics.ObserveNetworkRequest("telegram_bot", "get_chat_member", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Int64("user_id", userID).Msg("telegram: не удалось получить участника")
		return nil, domain.ErrNotAuthorized
	}
	return domain.TelegramRoles(member.Status, member.CustomTitle), nil
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	answer := ""
	defer func() {
		h.request(tgbotapi.NewCallback(cb.ID, answer), "answer_callback", strconv.FormatInt(cb.From.ID, 10))
	}()
	if cb.Message == nil || cb.Message.Chat == nil || !strings.HasPrefix(cb.Data, callbackPrefix) {
		return
	}
	if cb.Data == callbackClosed {
		answer = suggestions.UserMessage(domain.ErrAlreadyDecided)
		return
	}
	action, err := domain.ParseAction(strings.TrimPrefix(cb.Data, callbackPrefix))
	if err != nil {
		answer = suggestions.UserMessage(err)
		return
	}
	chatID := cb.Message.Chat.ID
	presentationID := PresentationID(chatID, cb.Message.MessageID)
	intent, err := h.intent(ctx, chatID, cb.From.ID, presentationID, action)
	if err != nil {
		answer = suggestions.UserMessage(err)
		return
	}
	prompt, err := h.svc.RequestReason(ctx, intent)
	if err != nil {
		answer = suggestions.UserMessage(err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s, %s. %s %s", displayName(cb.From), prompt.Title, prompt.Label, promptMarker))
	msg.ReplyToMessageID = cb.Message.MessageID
	msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true, InputFieldPlaceholder: prompt.Label}
	start := time.Now()
	sent, err := h.api.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", "send_prompt", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		h.log.Error().Err(err).Str("presentation_id", presentationID).Msg("telegram: не удалось запросить причину")
		answer = suggestions.UserMessage(err)
		return
	}
	h.pending.put(PresentationID(chatID, sent.MessageID), pendingReason{intent: intent, card: cb.Message.Text})
	answer = prompt.Label
}

// tryDecide применяет решение, если сообщение: ответ на запрос причины.
func (h *Handler) tryDecide(ctx context.Context, msg *tgbotapi.Message) bool {
	promptKey := PresentationID(msg.Chat.ID, msg.ReplyToMessage.MessageID)
	actorID := strconv.FormatInt(msg.From.ID, 10)
	item, ok := h.pending.take(promptKey, actorID)
	if !ok {
		return false
	}
	intent, err := h.intent(ctx, msg.Chat.ID, msg.From.ID, item.intent.PresentationID, item.intent.Action)
	if err != nil {
		h.reply(msg.Chat.ID, suggestions.UserMessage(err))
		return true
	}
	out, err := h.svc.Decide(ctx, suggestions.DecisionCommand{
		DecisionIntent: intent,
		Reason:         msg.Text,
		Platform:       domain.PlatformTelegram,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidReason) {
			h.pending.put(promptKey, item)
		}
		h.reply(msg.Chat.ID, suggestions.UserMessage(err))
		return true
	}
	if err := h.presenter.Update(ctx, item.card, out.Update); err != nil {
		h.log.Error().Err(err).Str("presentation_id", out.Update.PresentationID).Msg("telegram: не удалось обновить карточку")
	}
	h.request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.ReplyToMessage.MessageID), "delete_prompt", strconv.FormatInt(msg.Chat.ID, 10))
	h.reply(msg.Chat.ID, fmt.Sprintf("Предложение %s.", suggestions.OutcomeLabel(out.Suggestion.Status)))

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if !h.svc.Notify(notifyCtx, out) {
		h.reply(msg.Chat.ID, "Автора не удалось уведомить.")
	}
	return true
}

// isReasonPrompt сообщает, что сообщение: запрос причины от бота.
func isReasonPrompt(m *tgbotapi.Message) bool {
	return m != nil && m.From != nil && m.From.IsBot && strings.HasSuffix(m.Text, promptMarker)
}

func (h *Handler) isAdmin(chatID, userID int64) bool {
	start := time.Now()
	member, err := h.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	metrics.ObserveNetworkRequest("telegram_bot", "get_chat_member", strconv.FormatInt(chatID, 10), start, err)
	return err == nil && domain.IsTelegramAdmin(member.Status)
}

func (h *Handler) handleSetup(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 3 {
		h.reply(msg.Chat.ID, "Использование: /setup_suggestions <эмодзи1> <эмодзи2> <роль>\nРоль: administrator, creator или должность участника.")
		return
	}
	chat := strconv.FormatInt(msg.Chat.ID, 10)
	cfg, err := h.channels.Setup(ctx, channels.SetupCommand{
		GuildID:     chat,
		ChannelID:   chat,
		ChannelName: msg.Chat.Title,
		Emoji1:      args[0],
		Emoji2:      args[1],
		RoleID:      args[2],
		ActorAdmin:  h.isAdmin(msg.Chat.ID, msg.From.ID),
	})
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			h.log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("telegram: ошибка настройки чата")
			h.reply(msg.Chat.ID, suggestions.UserMessage(err))
			return
		}
		h.reply(msg.Chat.ID, err.Error())
		return
	}
	h.log.Info().Str("chat_id", cfg.ChannelID).Msg("telegram: чат предложений настроен")
	h.reply(msg.Chat.ID, fmt.Sprintf("Готово. Решения принимает роль «%s».", cfg.AllowedRoleID))
}

func (h *Handler) handleRemove(ctx context.Context, msg *tgbotapi.Message) {
	if !h.isAdmin(msg.Chat.ID, msg.From.ID) {
		h.reply(msg.Chat.ID, channels.ErrNotAdmin.Error())
		return
	}
	chat := strconv.FormatInt(msg.Chat.ID, 10)
	err := h.channels.Remove(ctx, chat, chat)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.reply(msg.Chat.ID, "Чат не настроен для предложений.")
	case err != nil:
		h.log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("telegram: ошибка удаления настройки")
		h.reply(msg.Chat.ID, suggestions.UserMessage(err))
	default:
		h.reply(msg.Chat.ID, "Предложения в этом чате отключены.")
	}
}

func (h *Handler) request(c tgbotapi.Chattable, op, target string) {
	start := time.Now()
	_, err := h.api.Request(c)
	metrics.ObserveNetworkRequest("telegram_bot", op, target, start, err)
	if err != nil {
		h.log.Warn().Err(err).Str("op", op).Msg("telegram: запрос не выполнен")
	}
}

func (h *Handler) reply(chatID int64, text string) {
	for _, part := range telegram.SplitMessage(text) {
		start := time.Now()
		_, err := h.api.Send(tgbotapi.NewMessage(chatID, part))
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			h.log.Error().Err(err).Msg("не удалось отправить сообщение")
			return
		}
	}
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
