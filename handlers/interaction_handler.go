package handlers

import (
	"starboard-bot/bot"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

func handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{"interaction": i.ID, "panic": r}).Error("Recovered from panic while handling interaction")
		}
	}()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			h(s, i)
		}
	case discordgo.InteractionApplicationCommandAutocomplete:
		handleAutocomplete(s, i, b)
	}
}
