package handlers

import (
	"starboard-bot/bot"

	"github.com/bwmarrin/discordgo"
)

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"config": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleConfigCommand(s, i, b)
		},
		"system-info": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			SystemInfoHandler(s, i, b)
		},
	}
}
