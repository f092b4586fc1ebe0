package discord

import "github.com/bwmarrin/discordgo"

const setupCommandName = "setup-suggestions"

var adminPermission int64 = discordgo.PermissionAdministrator

// SetupCommand регистрирует канал предложений.
var SetupCommand = &discordgo.ApplicationCommand{
	Name:                     setupCommandName,
	Description:              "Настроить канал предложений",
	DefaultMemberPermissions: &adminPermission,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "channel",
			Description:  "Канал, в котором публикуются предложения",
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
			Required:     true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "emoji1",
			Description: "Первая реакция",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "emoji2",
			Description: "Вторая реакция",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionRole,
			Name:        "role",
			Description: "Роль, которая принимает решения",
			Required:    true,
		},
	},
}

// Commands: все слэш-команды бота.
var Commands = []*discordgo.ApplicationCommand{SetupCommand}
