package domain

import "time"

// Platform определяет транспорт, через который пришло предложение.
type Platform string

const (
	PlatformDiscord  Platform = "discord"
	PlatformTelegram Platform = "telegram"
)

// PresentationRequest описывает карточку нового предложения для транспорта.
type PresentationRequest struct {
	GuildID     string
	ChannelID   string
	AuthorID    string
	AuthorTag   string
	AuthorIcon  string
	Title       string
	Body        string
	StatusLabel string
	Emojis      EmojiPair
	SubmittedAt time.Time
}

// PresentationUpdateRequest описывает финальное состояние карточки.
type PresentationUpdateRequest struct {
	PresentationID string
	ChannelID      string
	Status         SuggestionStatus
	StatusLabel    string
	Reason         string
	Color          int
}

// ReasonPrompt: запрос причины у модератора. Промежуточного статуса не создаёт.
type ReasonPrompt struct {
	PresentationID string
	Action         DecisionAction
	Title          string
	Label          string
}

// NotificationRequest: уведомление автору о решении.
type NotificationRequest struct {
	Platform       Platform         `json:"platform"`
	AuthorID       string           `json:"author_id"`
	GuildID        string           `json:"guild_id,omitempty"`
	ChannelID      string           `json:"channel_id"`
	PresentationID string           `json:"presentation_id"`
	Outcome        SuggestionStatus `json:"outcome"`
	Reason         string           `json:"reason,omitempty"`
}

// NotificationJob: задача очереди уведомлений.
type NotificationJob struct {
	ID          string              `json:"job_id"`
	Request     NotificationRequest `json:"request"`
	RequestedAt time.Time           `json:"requested_at"`
}

// Status colors.
const (
	ColorPending  = 0x12cdde
	ColorAccepted = 0x1cde12
	ColorRejected = 0xde1212
)
