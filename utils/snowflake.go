package utils

import (
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// ParseID parses a Discord snowflake.
func ParseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid snowflake %q", s)
	}
	return id, nil
}

// OptionalID parses a snowflake that may be absent. An empty string yields
// nil.
func OptionalID(s string) (*uint64, error) {
	if s == "" {
		return nil, nil
	}
	id, err := ParseID(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// FormatID renders a snowflake the way the Discord API expects it.
func FormatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// SnowflakeTime returns the creation time encoded in a snowflake.
func SnowflakeTime(id uint64) time.Time {
	t, _ := discordgo.SnowflakeTimestamp(FormatID(id))
	return t
}
