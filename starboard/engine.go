// Package starboard keeps starboard mirrors in step with the reactions,
// edits and deletions of their source messages.
package starboard

import (
	"context"
	"time"

	"starboard-bot/metrics"
	"starboard-bot/model"
	"starboard-bot/partials"
	"starboard-bot/utils"
	"starboard-bot/utils/database"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	outcomeOK      = "ok"
	outcomeIgnored = "ignored"
	outcomeError   = "error"
)

// Clock supplies the current time for the message age limit.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Engine applies events to the store and to the mirror messages.
type Engine struct {
	store    *database.Client
	resolver *partials.Resolver
	locks    *utils.KeyedMutex
	clock    Clock
	log      *logrus.Entry
}

type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func NewEngine(store *database.Client, resolver *partials.Resolver, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		resolver: resolver,
		locks:    utils.NewKeyedMutex(),
		clock:    systemClock{},
		log:      logrus.WithField("module", "starboard"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle applies one event using the configuration snapshot cfg.
func (e *Engine) Handle(ctx context.Context, cfg *model.Config, ev Event) error {
	if ev == nil {
		return errors.New("nil starboard event")
	}
	name := ev.eventName()
	start := time.Now()

	outcome, err := e.dispatch(ctx, cfg, ev)
	if err != nil {
		outcome = outcomeError
	}
	metrics.EventsHandled.WithLabelValues(name, outcome).Inc()
	metrics.EventDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return errors.WithMessage(err, name)
}

func (e *Engine) dispatch(ctx context.Context, cfg *model.Config, ev Event) (string, error) {
	switch ev := ev.(type) {
	case ReactionAdd:
		return e.onReactionAdd(ctx, cfg, ev)
	case ReactionRemove:
		return e.onReactionRemove(ctx, cfg, ev)
	case ReactionClear:
		return e.onReactionClear(ctx, cfg, ev)
	case ReactionClearEmoji:
		return e.onReactionClearEmoji(ctx, cfg, ev)
	case MessageEdit:
		return e.onMessageEdit(ctx, cfg, ev)
	case MessageDelete:
		if ev.GuildID == nil {
			return outcomeIgnored, nil
		}
		return e.deleteSources(ctx, []uint64{ev.MessageID})
	case MessageDeleteBulk:
		if ev.GuildID == nil {
			return outcomeIgnored, nil
		}
		return e.deleteSources(ctx, ev.MessageIDs)
	case GuildRemove:
		return e.onGuildRemove(ctx, ev)
	case ChannelRemove:
		return e.onChannelRemove(ctx, ev)
	default:
		return outcomeError, errors.Errorf("unhandled starboard event %T", ev)
	}
}

func (e *Engine) onReactionAdd(ctx context.Context, cfg *model.Config, ev ReactionAdd) (string, error) {
	if ev.GuildID == nil || !cfg.Starboard.IsStarEmoji(ev.Emoji) {
		return outcomeIgnored, nil
	}
	return e.syncStars(ctx, cfg, *ev.GuildID, ev.MessageID, func(q *database.Query) error {
		return q.AddMessageStar(ctx, ev.MessageID, ev.UserID, ev.Emoji, ev.ChannelID, ev.GuildID)
	})
}

func (e *Engine) onReactionRemove(ctx context.Context, cfg *model.Config, ev ReactionRemove) (string, error) {
	if ev.GuildID == nil || !cfg.Starboard.IsStarEmoji(ev.Emoji) {
		return outcomeIgnored, nil
	}
	return e.syncStars(ctx, cfg, *ev.GuildID, ev.MessageID, func(q *database.Query) error {
		return q.RemoveMessageStar(ctx, ev.MessageID, ev.UserID, ev.Emoji)
	})
}

func (e *Engine) onReactionClear(ctx context.Context, cfg *model.Config, ev ReactionClear) (string, error) {
	if ev.GuildID == nil {
		return outcomeIgnored, nil
	}
	return e.syncStars(ctx, cfg, *ev.GuildID, ev.MessageID, func(q *database.Query) error {
		return q.ClearMessageStars(ctx, ev.MessageID, nil)
	})
}

func (e *Engine) onReactionClearEmoji(ctx context.Context, cfg *model.Config, ev ReactionClearEmoji) (string, error) {
	if ev.GuildID == nil || !cfg.Starboard.IsStarEmoji(ev.Emoji) {
		return outcomeIgnored, nil
	}
	return e.syncStars(ctx, cfg, *ev.GuildID, ev.MessageID, func(q *database.Query) error {
		return q.ClearMessageStars(ctx, ev.MessageID, &ev.Emoji)
	})
}

func (e *Engine) onGuildRemove(ctx context.Context, ev GuildRemove) (string, error) {
	err := e.store.Acquire(ctx, database.AcquireOptions{Transaction: true}, func(q *database.Query) error {
		return q.RemoveGuild(ctx, ev.GuildID)
	})
	if err != nil {
		return outcomeError, err
	}
	e.log.WithField("guild_id", ev.GuildID).Info("Removed guild data")
	return outcomeOK, nil
}

func (e *Engine) onChannelRemove(ctx context.Context, ev ChannelRemove) (string, error) {
	err := e.store.Acquire(ctx, database.AcquireOptions{Transaction: true}, func(q *database.Query) error {
		return q.RemoveChannel(ctx, ev.ChannelID)
	})
	if err != nil {
		return outcomeError, err
	}
	return outcomeOK, nil
}
