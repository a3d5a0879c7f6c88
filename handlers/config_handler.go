package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"starboard-bot/bot"
	"starboard-bot/utils"
	"starboard-bot/utils/database"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const commandTimeout = 10 * time.Second

// HandleConfigCommand serves every /config subcommand.
func HandleConfigCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if i.GuildID == "" {
		utils.SendErrorResponse(s, i, "This command can only be used in a server.")
		return
	}
	if !utils.CanManageGuild(i) {
		utils.SendErrorResponse(s, i, "You need the Manage Server permission to use this command.")
		return
	}
	guildID, err := utils.ParseID(i.GuildID)
	if err != nil {
		utils.SendErrorResponse(s, i, "Invalid server.")
		return
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}
	sub := options[0]
	optionMap := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(sub.Options))
	for _, opt := range sub.Options {
		optionMap[opt.Name] = opt
	}

	ctx, cancel := context.WithTimeout(b.Context(), commandTimeout)
	defer cancel()

	var reply string
	switch sub.Name {
	case "set-channel":
		var channelID *uint64
		if opt, ok := optionMap["channel"]; ok {
			id, err := utils.ParseID(opt.ChannelValue(nil).ID)
			if err != nil {
				utils.SendErrorResponse(s, i, "Invalid channel.")
				return
			}
			channelID = &id
		}
		reply, err = setChannel(ctx, b.Store, guildID, channelID)
	case "set-threshold":
		reply, err = setThreshold(ctx, b.Store, guildID, int(optionMap["threshold"].IntValue()))
	case "set-max-age":
		reply, err = setMaxAge(ctx, b.Store, guildID, optionMap["max-age"].StringValue())
	case "show":
		reply, err = showConfig(ctx, b.Store, guildID)
	default:
		return
	}
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{"guild_id": guildID, "subcommand": sub.Name}).Error("Config command failed")
		utils.SendErrorResponse(s, i, "Failed to update the starboard configuration.")
		return
	}
	utils.SendSimpleResponse(s, i, reply)
}

func mention(channelID uint64) string {
	return fmt.Sprintf("<#%d>", channelID)
}

func setChannel(ctx context.Context, store *database.Client, guildID uint64, channelID *uint64) (string, error) {
	var changed bool
	err := store.Acquire(ctx, database.AcquireOptions{Transaction: true}, func(q *database.Query) error {
		current, err := q.GetStarboardChannel(ctx, guildID)
		if err != nil {
			return err
		}
		changed = !sameID(current, channelID)
		if !changed {
			return nil
		}
		return q.SetStarboardChannel(ctx, guildID, channelID)
	})
	if err != nil {
		return "", err
	}

	switch {
	case changed && channelID != nil:
		return fmt.Sprintf("Successfully set the starboard channel to %s!", mention(*channelID)), nil
	case changed:
		return "Successfully unset the starboard channel!", nil
	case channelID != nil:
		return fmt.Sprintf("%s is already the starboard channel!", mention(*channelID)), nil
	default:
		return "There is already no starboard channel set!", nil
	}
}

func sameID(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func setThreshold(ctx context.Context, store *database.Client, guildID uint64, threshold int) (string, error) {
	var changed bool
	err := store.Acquire(ctx, database.AcquireOptions{Transaction: true}, func(q *database.Query) error {
		current, err := q.GetStarboardThreshold(ctx, guildID)
		if err != nil {
			return err
		}
		if changed = current != threshold; !changed {
			return nil
		}
		return q.SetStarboardThreshold(ctx, guildID, threshold)
	})
	if err != nil {
		return "", err
	}
	if changed {
		return fmt.Sprintf("Successfully set the star threshold to %d!", threshold), nil
	}
	return fmt.Sprintf("The current star threshold is %d!", threshold), nil
}

func setMaxAge(ctx context.Context, store *database.Client, guildID uint64, raw string) (string, error) {
	maxAge, err := utils.ParseDuration(strings.TrimSpace(raw))
	if err != nil || maxAge < 0 {
		return fmt.Sprintf("Could not understand %q. Use a duration such as 7d, 12h or a number of seconds.", raw), nil
	}
	maxAge = maxAge.Truncate(time.Second)

	err = store.Acquire(ctx, database.AcquireOptions{Transaction: true}, func(q *database.Query) error {
		return q.SetStarboardMaxAge(ctx, guildID, maxAge)
	})
	if err != nil {
		return "", err
	}
	if maxAge == 0 {
		return "Successfully removed the message age limit!", nil
	}
	return fmt.Sprintf("Messages older than %s will no longer reach the starboard.", utils.FormatDuration(maxAge)), nil
}

func showConfig(ctx context.Context, store *database.Client, guildID uint64) (string, error) {
	var (
		channelID *uint64
		threshold int
		maxAge    time.Duration
	)
	err := store.Acquire(ctx, database.AcquireOptions{}, func(q *database.Query) error {
		var err error
		if channelID, err = q.GetStarboardChannel(ctx, guildID); err != nil {
			return err
		}
		if threshold, err = q.GetStarboardThreshold(ctx, guildID); err != nil {
			return err
		}
		maxAge, err = q.GetStarboardMaxAge(ctx, guildID)
		return err
	})
	if err != nil {
		return "", err
	}

	channel := "not set"
	if channelID != nil {
		channel = mention(*channelID)
	}
	age := "unlimited"
	if maxAge > 0 {
		age = utils.FormatDuration(maxAge)
	}
	return fmt.Sprintf("**Starboard channel:** %s\n**Star threshold:** %d\n**Max message age:** %s", channel, threshold, age), nil
}
