package defs

import "github.com/bwmarrin/discordgo"

var (
	manageGuild       = int64(discordgo.PermissionManageGuild)
	guildOnly         = false
	minThreshold      = 1.0
	starboardChannels = []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews}
)

const MaxThreshold = 100

var Config = &discordgo.ApplicationCommand{
	Name:                     "config",
	Description:              "Starboard configuration.",
	DefaultMemberPermissions: &manageGuild,
	DMPermission:             &guildOnly,
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "配置",
		discordgo.ChineseTW: "配置",
	},
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "星标板配置",
		discordgo.ChineseTW: "星標板配置",
	},
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "set-channel",
			Description: "Sets the starboard channel to send messages to.",
			DescriptionLocalizations: map[discordgo.Locale]string{
				discordgo.ChineseCN: "设置星标板消息发送的频道",
			},
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "The channel to send starboard messages to. Leave empty to disable.",
					Required:     false,
					ChannelTypes: starboardChannels,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "set-threshold",
			Description: "Sets the number of stars required for a message to be pinned.",
			DescriptionLocalizations: map[discordgo.Locale]string{
				discordgo.ChineseCN: "设置消息上榜所需的星标数",
			},
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionInteger,
					Name:         "threshold",
					Description:  "The number of stars required.",
					Required:     true,
					MinValue:     &minThreshold,
					MaxValue:     MaxThreshold,
					Autocomplete: true,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "set-max-age",
			Description: "Sets how old a message may be to reach the starboard.",
			DescriptionLocalizations: map[discordgo.Locale]string{
				discordgo.ChineseCN: "设置可上榜消息的最大时长",
			},
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "max-age",
					Description: "Duration such as 7d, 12h or seconds. 0 removes the limit.",
					Required:    true,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "show",
			Description: "Shows the current starboard configuration.",
			DescriptionLocalizations: map[discordgo.Locale]string{
				discordgo.ChineseCN: "显示当前星标板配置",
			},
		},
	},
}
