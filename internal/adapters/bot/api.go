package bot

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// API: методы tgbotapi.BotAPI, которые использует бот.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

var _ API = (*tgbotapi.BotAPI)(nil)
