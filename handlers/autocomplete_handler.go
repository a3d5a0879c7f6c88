package handlers

import (
	"context"
	"fmt"

	"starboard-bot/bot"
	"starboard-bot/utils"
	"starboard-bot/utils/database"

	"github.com/bwmarrin/discordgo"
)

func handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	data := i.ApplicationCommandData()
	var choices []*discordgo.ApplicationCommandOptionChoice

	switch data.Name {
	case "config":
		if len(data.Options) == 0 || data.Options[0].Name != "set-threshold" || i.GuildID == "" {
			break
		}
		guildID, err := utils.ParseID(i.GuildID)
		if err != nil {
			break
		}
		ctx, cancel := context.WithTimeout(b.Context(), commandTimeout)
		defer cancel()
		choices, err = thresholdChoices(ctx, b.Store, guildID)
		if err != nil {
			log.WithError(err).Warn("Autocomplete: failed to read threshold")
		}
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
	if err != nil {
		log.WithError(err).Warn("Failed to send autocomplete choices")
	}
}

// thresholdChoices offers the current threshold of a guild.
func thresholdChoices(ctx context.Context, store *database.Client, guildID uint64) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	var threshold int
	err := store.Acquire(ctx, database.AcquireOptions{}, func(q *database.Query) error {
		var err error
		threshold, err = q.GetStarboardThreshold(ctx, guildID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return []*discordgo.ApplicationCommandOptionChoice{{
		Name:  fmt.Sprintf("Current star threshold: %d", threshold),
		Value: threshold,
	}}, nil
}
