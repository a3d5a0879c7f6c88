package database

import (
	"context"

	"starboard-bot/cache"

	"github.com/pkg/errors"
)

// AddGuild records a guild. Repeated calls inside the cache window skip
// the store.
func (q *Query) AddGuild(ctx context.Context, id uint64) error {
	if _, err := q.conn(); err != nil {
		return err
	}
	key := cache.Key("guild", id)
	if q.cached(ctx, "guild", key) {
		return nil
	}

	if _, err := q.exec(ctx, `INSERT INTO guild (id) VALUES (?) ON CONFLICT DO NOTHING`, id); err != nil {
		return errors.Wrapf(err, "failed to add guild %d", id)
	}
	q.remember(ctx, key)
	return nil
}

// AddChannel records a channel and, when guildID is known, its guild. A
// nil guildID never clears a guild recorded earlier.
func (q *Query) AddChannel(ctx context.Context, id uint64, guildID *uint64) error {
	if _, err := q.conn(); err != nil {
		return err
	}
	key := channelKey(id, guildID)
	if q.cached(ctx, "channel", key) {
		return nil
	}

	if guildID != nil {
		if err := q.AddGuild(ctx, *guildID); err != nil {
			return err
		}
	}
	_, err := q.exec(ctx, `
		INSERT INTO channel (id, guild_id) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET guild_id = COALESCE(excluded.guild_id, channel.guild_id)`,
		id, nullableID(guildID))
	if err != nil {
		return errors.Wrapf(err, "failed to add channel %d", id)
	}
	q.remember(ctx, key)
	return nil
}

func (q *Query) AddUser(ctx context.Context, id uint64) error {
	if _, err := q.conn(); err != nil {
		return err
	}
	key := cache.Key("user", id)
	if q.cached(ctx, "user", key) {
		return nil
	}

	if _, err := q.exec(ctx, `INSERT INTO "user" (id) VALUES (?) ON CONFLICT DO NOTHING`, id); err != nil {
		return errors.Wrapf(err, "failed to add user %d", id)
	}
	q.remember(ctx, key)
	return nil
}

// AddMessage records a message with its author and location. On conflict
// the latest channel and author win.
func (q *Query) AddMessage(ctx context.Context, id, channelID, userID uint64, guildID *uint64) error {
	if _, err := q.conn(); err != nil {
		return err
	}
	key := cache.Key("message", id, channelID, userID)
	if q.cached(ctx, "message", key) {
		return nil
	}

	if err := q.AddChannel(ctx, channelID, guildID); err != nil {
		return err
	}
	if err := q.AddUser(ctx, userID); err != nil {
		return err
	}
	_, err := q.exec(ctx, `
		INSERT INTO message (id, channel_id, user_id) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET channel_id = excluded.channel_id, user_id = excluded.user_id`,
		id, channelID, userID)
	if err != nil {
		return errors.Wrapf(err, "failed to add message %d", id)
	}
	q.remember(ctx, key)
	q.remember(ctx, cache.Key("message", id))
	return nil
}

// ensureMessage inserts a placeholder message row when none exists yet.
// Unlike AddMessage it never overwrites a recorded author.
func (q *Query) ensureMessage(ctx context.Context, id, channelID, userID uint64, guildID *uint64) error {
	key := cache.Key("message", id)
	if q.cached(ctx, "message", key) {
		return nil
	}

	if err := q.AddChannel(ctx, channelID, guildID); err != nil {
		return err
	}
	if err := q.AddUser(ctx, userID); err != nil {
		return err
	}
	_, err := q.exec(ctx, `INSERT INTO message (id, channel_id, user_id) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		id, channelID, userID)
	if err != nil {
		return errors.Wrapf(err, "failed to ensure message %d", id)
	}
	q.remember(ctx, key)
	return nil
}

func channelKey(id uint64, guildID *uint64) string {
	if guildID == nil {
		return cache.Key("channel", id)
	}
	return cache.Key("channel", id, *guildID)
}

func messageKeys(id, channelID, userID uint64) []string {
	return []string{
		cache.Key("message", id),
		cache.Key("message", id, channelID, userID),
	}
}
