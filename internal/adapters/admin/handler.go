package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"suggestion-bot/internal/domain"
	httpinfra "suggestion-bot/internal/infra/http"
	"suggestion-bot/internal/usecase/channels"
	"suggestion-bot/internal/usecase/suggestions"
)

// Handler обслуживает административный API.
type Handler struct {
	channels    *channels.Service
	suggestions *suggestions.Service
	log         zerolog.Logger
}

// NewHandler создаёт обработчик.
func NewHandler(channelUC *channels.Service, suggestionUC *suggestions.Service, log zerolog.Logger) *Handler {
	return &Handler{channels: channelUC, suggestions: suggestionUC, log: log}
}

// Mount регистрирует маршруты под токеном администратора.
func (h *Handler) Mount(r chi.Router, token string) {
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(httpinfra.AdminAuthMiddleware(token))
		api.Get("/guilds/{guildID}/channels", h.listChannels)
		api.Put("/guilds/{guildID}/channels/{channelID}", h.putChannel)
		api.Delete("/guilds/{guildID}/channels/{channelID}", h.deleteChannel)
		api.Get("/suggestions/{presentationID}", h.getSuggestion)
	})
}

type channelRequest struct {
	ChannelName   string           `json:"channel_name"`
	AllowedRoleID string           `json:"allowed_role_id"`
	Emojis        domain.EmojiPair `json:"emojis"`
}

func (h *Handler) listChannels(w http.ResponseWriter, r *http.Request) {
	list, err := h.channels.List(r.Context(), chi.URLParam(r, "guildID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []domain.ChannelConfig{}
	}
	httpinfra.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) putChannel(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req channelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	saved, err := h.channels.Update(r.Context(), domain.ChannelConfig{
		GuildID:       chi.URLParam(r, "guildID"),
		ChannelID:     chi.URLParam(r, "channelID"),
		ChannelName:   req.ChannelName,
		AllowedRoleID: req.AllowedRoleID,
		Emojis:        req.Emojis,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, saved)
}

func (h *Handler) deleteChannel(w http.ResponseWriter, r *http.Request) {
	if err := h.channels.Remove(r.Context(), chi.URLParam(r, "guildID"), chi.URLParam(r, "channelID")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getSuggestion(w http.ResponseWriter, r *http.Request) {
	sg, err := h.suggestions.Find(r.Context(), chi.URLParam(r, "presentationID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, sg)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		httpinfra.WriteError(w, http.StatusNotFound, errors.New("not found"))
	case errors.Is(err, channels.ErrInvalidEmoji), errors.Is(err, channels.ErrInvalidRole), errors.Is(err, channels.ErrInvalidChannel):
		httpinfra.WriteError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("admin: хранилище недоступно")
		httpinfra.WriteError(w, http.StatusServiceUnavailable, errors.New("storage unavailable"))
	default:
		h.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("admin: ошибка запроса")
		httpinfra.WriteError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}
