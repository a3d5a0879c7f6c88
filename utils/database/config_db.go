package database

import (
	"context"
	"database/sql"
	"time"

	"starboard-bot/model"

	"github.com/pkg/errors"
)

// GetGuildConfig returns the starboard configuration of a guild, creating
// the guild with default settings when it is new.
func (q *Query) GetGuildConfig(ctx context.Context, guildID uint64) (model.GuildConfig, error) {
	if err := q.AddGuild(ctx, guildID); err != nil {
		return model.GuildConfig{}, err
	}

	var cfg model.GuildConfig
	err := q.get(ctx, &cfg, `
		SELECT guild_id, starboard_channel_id, starboard_threshold, max_message_age
		FROM starboard_guild_config WHERE guild_id = ?`,
		guildID)
	if errors.Is(err, sql.ErrNoRows) {
		mustConfig(guildID, "configuration row is missing")
	}
	if err != nil {
		return model.GuildConfig{}, errors.Wrapf(err, "failed to get config for guild %d", guildID)
	}
	return cfg, nil
}

// GetStarboardChannel returns the configured starboard channel, or nil when
// the starboard is disabled.
func (q *Query) GetStarboardChannel(ctx context.Context, guildID uint64) (*uint64, error) {
	cfg, err := q.GetGuildConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if !cfg.StarboardChannelID.Valid {
		return nil, nil
	}
	id := uint64(cfg.StarboardChannelID.Int64)
	return &id, nil
}

// GetStarboardThreshold returns the minimum star total for a mirror. A
// missing threshold is a broken store and panics.
func (q *Query) GetStarboardThreshold(ctx context.Context, guildID uint64) (int, error) {
	cfg, err := q.GetGuildConfig(ctx, guildID)
	if err != nil {
		return 0, err
	}
	return ThresholdOf(cfg), nil
}

// ThresholdOf returns the star threshold of cfg. A null threshold is a
// broken store and panics.
func ThresholdOf(cfg model.GuildConfig) int {
	if !cfg.StarboardThreshold.Valid {
		mustConfig(cfg.GuildID, "starboard threshold is null")
	}
	return int(cfg.StarboardThreshold.Int64)
}

// GetStarboardMaxAge returns the maximum source age for new mirrors. Zero
// means no limit.
func (q *Query) GetStarboardMaxAge(ctx context.Context, guildID uint64) (time.Duration, error) {
	cfg, err := q.GetGuildConfig(ctx, guildID)
	if err != nil {
		return 0, err
	}
	return cfg.MaxAge(), nil
}

// SetStarboardChannel sets or, with a nil channelID, clears the starboard
// channel of a guild.
func (q *Query) SetStarboardChannel(ctx context.Context, guildID uint64, channelID *uint64) error {
	if err := q.AddGuild(ctx, guildID); err != nil {
		return err
	}
	if channelID != nil {
		if err := q.AddChannel(ctx, *channelID, &guildID); err != nil {
			return err
		}
	}
	return q.updateConfig(ctx, guildID, "starboard_channel_id", nullableID(channelID))
}

// ClearStarboardChannel unsets the starboard channel of a guild only while
// it is still channelID. It reports whether the row changed.
func (q *Query) ClearStarboardChannel(ctx context.Context, guildID, channelID uint64) (bool, error) {
	res, err := q.exec(ctx, `
		UPDATE starboard_guild_config SET starboard_channel_id = NULL
		WHERE guild_id = ? AND starboard_channel_id = ?`,
		guildID, channelID)
	if err != nil {
		return false, errors.Wrapf(err, "failed to clear starboard channel for guild %d", guildID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}

func (q *Query) SetStarboardThreshold(ctx context.Context, guildID uint64, threshold int) error {
	if threshold < 1 {
		return errors.Errorf("starboard threshold must be positive, got %d", threshold)
	}
	if err := q.AddGuild(ctx, guildID); err != nil {
		return err
	}
	return q.updateConfig(ctx, guildID, "starboard_threshold", threshold)
}

// SetStarboardMaxAge stores maxAge in whole seconds. Zero removes the limit.
func (q *Query) SetStarboardMaxAge(ctx context.Context, guildID uint64, maxAge time.Duration) error {
	if maxAge < 0 {
		return errors.Errorf("max message age must not be negative, got %s", maxAge)
	}
	if err := q.AddGuild(ctx, guildID); err != nil {
		return err
	}
	return q.updateConfig(ctx, guildID, "max_message_age", int64(maxAge/time.Second))
}

// updateConfig sets one column of a guild's configuration. column is always
// a constant from this file.
func (q *Query) updateConfig(ctx context.Context, guildID uint64, column string, value any) error {
	res, err := q.exec(ctx, `UPDATE starboard_guild_config SET `+column+` = ? WHERE guild_id = ?`, value, guildID)
	if err != nil {
		return errors.Wrapf(err, "failed to update %s for guild %d", column, guildID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.Wrapf(ErrInvariant, "guild %d has no configuration row", guildID)
	}
	return nil
}

func mustConfig(guildID uint64, reason string) {
	panic(errors.Wrapf(ErrInvariant, "guild %d: %s", guildID, reason))
}
