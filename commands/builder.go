package commands

import (
	"starboard-bot/commands/defs"

	"github.com/bwmarrin/discordgo"
)

// All returns every global application command the bot registers.
func All() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		defs.Config,
		defs.SystemInfo,
	}
}
