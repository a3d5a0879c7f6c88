package model

import (
	"database/sql"
	"time"
)

// Guild is a community the bot has seen at least one event from.
type Guild struct {
	ID uint64 `db:"id"`
}

// Channel belongs to at most one guild. GuildID may be unknown at first.
type Channel struct {
	ID      uint64        `db:"id"`
	GuildID sql.NullInt64 `db:"guild_id"`
}

type User struct {
	ID uint64 `db:"id"`
}

// Message is any message the starboard tracks, source or mirror.
type Message struct {
	ID        uint64 `db:"id"`
	ChannelID uint64 `db:"channel_id"`
	UserID    uint64 `db:"user_id"`
}

// MessageStar is a single qualifying reaction.
type MessageStar struct {
	MessageID uint64 `db:"message_id"`
	UserID    uint64 `db:"user_id"`
	Emoji     string `db:"emoji"`
}

// StarCount is the number of stars a message has for one emoji.
type StarCount struct {
	Emoji string `db:"emoji"`
	Count int    `db:"count"`
}

// GuildConfig is the per-guild starboard configuration row.
type GuildConfig struct {
	GuildID            uint64        `db:"guild_id"`
	StarboardChannelID sql.NullInt64 `db:"starboard_channel_id"`
	StarboardThreshold sql.NullInt64 `db:"starboard_threshold"`
	MaxMessageAge      sql.NullInt64 `db:"max_message_age"`
}

// MaxAge returns the configured maximum message age; zero means unlimited.
func (c GuildConfig) MaxAge() time.Duration {
	if !c.MaxMessageAge.Valid {
		return 0
	}
	return time.Duration(c.MaxMessageAge.Int64) * time.Second
}

// StarboardMessage maps a source message to its mirror.
type StarboardMessage struct {
	MessageID     uint64        `db:"message_id"`
	StarMessageID uint64        `db:"star_message_id"`
	ChannelID     uint64        `db:"channel_id"`
	GuildID       sql.NullInt64 `db:"guild_id"`
}

// MessageRef is the persisted location of a message.
type MessageRef struct {
	MessageID uint64        `db:"id"`
	ChannelID uint64        `db:"channel_id"`
	GuildID   sql.NullInt64 `db:"guild_id"`
}

// RowCounts summarises the store for the system info command.
type RowCounts struct {
	Guilds            int `db:"guilds"`
	Channels          int `db:"channels"`
	Messages          int `db:"messages"`
	Stars             int `db:"stars"`
	StarboardMessages int `db:"starboard_messages"`
}
