package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"suggestion-bot/internal/domain"
)

const (
	fieldStatus = "Статус"
	fieldReason = "Причина"
)

// BuildSuggestionEmbed создаёт карточку нового предложения.
func BuildSuggestionEmbed(req domain.PresentationRequest) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       req.Title,
		Description: req.Body,
		Color:       domain.ColorPending,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    req.AuthorTag,
			IconURL: req.AuthorIcon,
		},
		Fields: []*discordgo.MessageEmbedField{
			{Name: fieldStatus, Value: req.StatusLabel},
		},
		Timestamp: req.SubmittedAt.UTC().Format(time.RFC3339),
	}
}

// BuildDecisionButtons создаёт кнопки «принять» и «отклонить».
func BuildDecisionButtons() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Принять",
					Style:    discordgo.SuccessButton,
					CustomID: ButtonID(domain.ActionAccept),
					Emoji:    &discordgo.ComponentEmoji{Name: "✅"},
				},
				discordgo.Button{
					Label:    "Отклонить",
					Style:    discordgo.DangerButton,
					CustomID: ButtonID(domain.ActionReject),
					Emoji:    &discordgo.ComponentEmoji{Name: "❌"},
				},
			},
		},
	}
}

// BuildClosedButtons заменяет кнопки решения неактивной кнопкой.
func BuildClosedButtons() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Закрыто",
					Style:    discordgo.SecondaryButton,
					CustomID: closedID,
					Disabled: true,
				},
			},
		},
	}
}

// ApplyUpdate возвращает копию карточки с финальным статусом. Исходный embed не меняется.
func ApplyUpdate(orig *discordgo.MessageEmbed, upd domain.PresentationUpdateRequest) *discordgo.MessageEmbed {
	var embed discordgo.MessageEmbed
	if orig != nil {
		embed = *orig
	}
	embed.Color = upd.Color
	fields := make([]*discordgo.MessageEmbedField, 0, len(embed.Fields)+1)
	for _, f := range embed.Fields {
		if f == nil || f.Name == fieldStatus || f.Name == fieldReason {
			continue
		}
		fields = append(fields, f)
	}
	fields = append(fields, &discordgo.MessageEmbedField{Name: fieldStatus, Value: upd.StatusLabel})
	if upd.Reason != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: fieldReason, Value: upd.Reason})
	}
	embed.Fields = fields
	return &embed
}

// BuildReasonModal создаёт модальное окно для ввода причины.
func BuildReasonModal(prompt domain.ReasonPrompt, maxLen int) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: ModalID(prompt.Action, prompt.PresentationID),
			Title:    prompt.Title,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:  reasonInputID,
							Label:     prompt.Label,
							Style:     discordgo.TextInputParagraph,
							Required:  true,
							MaxLength: maxLen,
						},
					},
				},
			},
		},
	}
}

// ModalReason извлекает причину из отправленной формы.
func ModalReason(data discordgo.ModalSubmitInteractionData) string {
	for _, comp := range data.Components {
		row, ok := comp.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range row.Components {
			if input, ok := c.(*discordgo.TextInput); ok && input.CustomID == reasonInputID {
				return input.Value
			}
		}
	}
	return ""
}

func ephemeral(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}
