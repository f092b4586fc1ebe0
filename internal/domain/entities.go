package domain

import (
	"strings"
	"time"
)

// SuggestionStatus описывает состояние предложения.
type SuggestionStatus string

const (
	StatusPending  SuggestionStatus = "pending"
	StatusAccepted SuggestionStatus = "accepted"
	StatusRejected SuggestionStatus = "rejected"
)

// Terminal сообщает, что по предложению уже принято решение.
func (s SuggestionStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Valid проверяет, что статус входит в допустимый набор.
func (s SuggestionStatus) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// DecisionAction: намерение модератора.
type DecisionAction string

const (
	ActionAccept DecisionAction = "accept"
	ActionReject DecisionAction = "reject"
)

// ParseAction приводит строку из транспорта к действию.
func ParseAction(raw string) (DecisionAction, error) {
	switch DecisionAction(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionAccept:
		return ActionAccept, nil
	case ActionReject:
		return ActionReject, nil
	}
	return "", ErrInvalidAction
}

// Status возвращает терминальный статус, в который переводит действие.
func (a DecisionAction) Status() (SuggestionStatus, error) {
	switch a {
	case ActionAccept:
		return StatusAccepted, nil
	case ActionReject:
		return StatusRejected, nil
	}
	return "", ErrInvalidAction
}

// Suggestion: отслеживаемая заявка пользователя.
type Suggestion struct {
	ID             string           `json:"id"`
	GuildID        string           `json:"guild_id"`
	AuthorID       string           `json:"author_id"`
	ChannelID      string           `json:"channel_id"`
	PresentationID string           `json:"presentation_id"`
	Content        string           `json:"content"`
	Status         SuggestionStatus `json:"status"`
	Reason         string           `json:"reason,omitempty"`
	DeciderID      string           `json:"decider_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	DecidedAt      *time.Time       `json:"decided_at,omitempty"`
}

// NewSuggestion описывает данные для создания записи.
type NewSuggestion struct {
	GuildID        string
	AuthorID       string
	ChannelID      string
	PresentationID string
	Content        string
}

// Transition описывает атомарный перевод предложения в терминальный статус.
type Transition struct {
	PresentationID string
	Status         SuggestionStatus
	Reason         string
	DeciderID      string
}

// EmojiPair: две реакции, которые ставятся под предложением.
type EmojiPair struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

// ChannelConfig описывает канал, в котором работают предложения.
type ChannelConfig struct {
	GuildID       string    `json:"guild_id"`
	ChannelID     string    `json:"channel_id"`
	ChannelName   string    `json:"channel_name,omitempty"`
	AllowedRoleID string    `json:"allowed_role_id"`
	Emojis        EmojiPair `json:"emojis"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
