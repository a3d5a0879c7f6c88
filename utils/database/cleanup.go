package database

import (
	"context"
	"database/sql"

	"starboard-bot/cache"
	"starboard-bot/model"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// RemoveGuild deletes a guild with its channels, messages, stars and
// configuration.
func (q *Query) RemoveGuild(ctx context.Context, guildID uint64) error {
	var channels []model.Channel
	if err := q.selectAll(ctx, &channels, `SELECT id, guild_id FROM channel WHERE guild_id = ?`, guildID); err != nil {
		return errors.Wrapf(err, "failed to list channels of guild %d", guildID)
	}
	var messages []model.Message
	err := q.selectAll(ctx, &messages, `
		SELECT m.id, m.channel_id, m.user_id
		FROM message m
		JOIN channel c ON c.id = m.channel_id
		WHERE c.guild_id = ?`,
		guildID)
	if err != nil {
		return errors.Wrapf(err, "failed to list messages of guild %d", guildID)
	}

	if _, err := q.exec(ctx, `DELETE FROM guild WHERE id = ?`, guildID); err != nil {
		return errors.Wrapf(err, "failed to remove guild %d", guildID)
	}

	q.forget(ctx, cache.Key("guild", guildID))
	for _, c := range channels {
		q.forgetChannel(ctx, c)
	}
	q.forgetMessages(ctx, messages)
	return nil
}

// RemoveChannel deletes a channel with its messages and stars. A guild
// using it as starboard is left without one.
func (q *Query) RemoveChannel(ctx context.Context, channelID uint64) error {
	var channel model.Channel
	err := q.get(ctx, &channel, `SELECT id, guild_id FROM channel WHERE id = ?`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to get channel %d", channelID)
	}
	var messages []model.Message
	if err := q.selectAll(ctx, &messages, `SELECT id, channel_id, user_id FROM message WHERE channel_id = ?`, channelID); err != nil {
		return errors.Wrapf(err, "failed to list messages of channel %d", channelID)
	}

	if _, err := q.exec(ctx, `DELETE FROM channel WHERE id = ?`, channelID); err != nil {
		return errors.Wrapf(err, "failed to remove channel %d", channelID)
	}

	q.forgetChannel(ctx, channel)
	q.forgetMessages(ctx, messages)
	return nil
}

// RemoveMessages deletes messages with their stars and any starboard
// mapping they take part in. Unknown ids are ignored.
func (q *Query) RemoveMessages(ctx context.Context, ids ...uint64) error {
	if _, err := q.conn(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`SELECT id, channel_id, user_id FROM message WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "failed to build message lookup")
	}
	var messages []model.Message
	if err := q.selectAll(ctx, &messages, query, args...); err != nil {
		return errors.Wrap(err, "failed to list messages")
	}
	if len(messages) == 0 {
		return nil
	}

	query, args, err = sqlx.In(`DELETE FROM message WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "failed to build message delete")
	}
	if _, err := q.exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "failed to remove messages")
	}

	q.forgetMessages(ctx, messages)
	return nil
}

// CountRows summarises the store.
func (q *Query) CountRows(ctx context.Context) (model.RowCounts, error) {
	var counts model.RowCounts
	err := q.get(ctx, &counts, `
		SELECT
			(SELECT COUNT(*) FROM guild) AS guilds,
			(SELECT COUNT(*) FROM channel) AS channels,
			(SELECT COUNT(*) FROM message) AS messages,
			(SELECT COUNT(*) FROM message_star) AS stars,
			(SELECT COUNT(*) FROM starboard_message) AS starboard_messages`)
	if err != nil {
		return model.RowCounts{}, errors.Wrap(err, "failed to count rows")
	}
	return counts, nil
}

func (q *Query) forgetChannel(ctx context.Context, c model.Channel) {
	q.forget(ctx, cache.Key("channel", c.ID))
	if c.GuildID.Valid {
		q.forget(ctx, cache.Key("channel", c.ID, uint64(c.GuildID.Int64)))
	}
}

func (q *Query) forgetMessages(ctx context.Context, messages []model.Message) {
	for _, m := range messages {
		q.forget(ctx, messageKeys(m.ID, m.ChannelID, m.UserID)...)
	}
}
