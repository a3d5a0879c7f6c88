package handlers

import (
	"context"
	"time"

	"starboard-bot/bot"
	"starboard-bot/model"
	"starboard-bot/starboard"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const eventTimeout = 30 * time.Second

var log = logrus.WithField("module", "handlers")

// eventSink applies a starboard event. *starboard.Engine implements it.
type eventSink interface {
	Handle(ctx context.Context, cfg *model.Config, ev starboard.Event) error
}

func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	addHandlers(b)
}

func addHandlers(b *bot.Bot) {
	s := b.Session
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.WithFields(logrus.Fields{
			"user":   r.User.Username,
			"guilds": len(r.Guilds),
		}).Info("Logged in")
	})
	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		handleInteractionCreate(s, i, b)
	})

	s.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageReactionAdd) {
		ev, err := starboard.FromReactionAdd(e)
		dispatch(b.Context(), b.Engine, b.GetConfig(), ev, err)
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageReactionRemove) {
		ev, err := starboard.FromReactionRemove(e)
		dispatch(b.Context(), b.Engine, b.GetConfig(), ev, err)
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageReactionRemoveAll) {
		ev, err := starboard.FromReactionRemoveAll(e)
		dispatch(b.Context(), b.Engine, b.GetConfig(), ev, err)
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.Event) {
		if e.Type != starboard.ReactionRemoveEmojiEvent {
			return
		}
		ev, err := starboard.FromRawReactionClearEmoji(e)
		dispatch(b.Context(), b.Engine, b.GetConfig(), ev, err)
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageUpdate) {
		ev, err := starboard.FromMessageUpdate(e)
		dispatch(b.Context(), b.Engine, b.GetConfig(), ev, err)
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageDelete) {
		ev, err := starboard.FromMessageDelete(e)
		dispatch(b.Context(), b.Engine, b.GetConfig(), ev, err)
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageDeleteBulk) {
		ev, err := starboard.FromMessageDeleteBulk(e)
		dispatch(b.Context(), b.Engine, b.GetConfig(), ev, err)
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildDelete) {
		ev, ok, err := starboard.FromGuildDelete(e)
		if err == nil && !ok {
			log.Info("Guild became unavailable, keeping its data")
			return
		}
		dispatch(b.Context(), b.Engine, b.GetConfig(), ev, err)
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.ChannelDelete) {
		ev, err := starboard.FromChannelDelete(e)
		dispatch(b.Context(), b.Engine, b.GetConfig(), ev, err)
	})
}

// dispatch hands one converted gateway event to sink. Conversion errors,
// handler errors and panics are logged so one event never stops the bot.
func dispatch(ctx context.Context, sink eventSink, cfg *model.Config, ev starboard.Event, convErr error) {
	if convErr != nil {
		log.WithError(convErr).Warn("Dropped malformed gateway event")
		return
	}
	name := starboard.EventName(ev)
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{"event": name, "panic": r}).Error("Recovered from panic while handling event")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()
	if err := sink.Handle(ctx, cfg, ev); err != nil {
		log.WithError(err).WithField("event", name).Error("Failed to handle starboard event")
	}
}
