package starboard

import (
	"encoding/json"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmojiKey(t *testing.T) {
	assert.Equal(t, "⭐", EmojiKey(&discordgo.Emoji{Name: "⭐"}))
	assert.Equal(t, "<:kekw:1234>", EmojiKey(&discordgo.Emoji{Name: "kekw", ID: "1234"}))
	assert.Equal(t, "<a:party:99>", EmojiKey(&discordgo.Emoji{Name: "party", ID: "99", Animated: true}))
	assert.Equal(t, "", EmojiKey(nil))
}

func TestFromReactionAdd(t *testing.T) {
	ev, err := FromReactionAdd(&discordgo.MessageReactionAdd{
		MessageReaction: &discordgo.MessageReaction{
			UserID:    "7",
			MessageID: "300",
			ChannelID: "20",
			GuildID:   "1",
			Emoji:     discordgo.Emoji{Name: "⭐"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, ev.GuildID)
	assert.Equal(t, uint64(1), *ev.GuildID)
	assert.Equal(t, uint64(20), ev.ChannelID)
	assert.Equal(t, uint64(300), ev.MessageID)
	assert.Equal(t, uint64(7), ev.UserID)
	assert.Equal(t, "⭐", ev.Emoji)
	assert.Equal(t, "reaction_add", EventName(ev))
}

func TestFromReactionRemove_DirectMessage(t *testing.T) {
	ev, err := FromReactionRemove(&discordgo.MessageReactionRemove{
		MessageReaction: &discordgo.MessageReaction{
			UserID:    "7",
			MessageID: "300",
			ChannelID: "20",
			Emoji:     discordgo.Emoji{Name: "⭐"},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, ev.GuildID)
}

func TestFromReaction_BadID(t *testing.T) {
	_, err := FromReactionAdd(&discordgo.MessageReactionAdd{
		MessageReaction: &discordgo.MessageReaction{MessageID: "nope", ChannelID: "20"},
	})
	assert.Error(t, err)

	_, err = FromReactionRemoveAll(&discordgo.MessageReactionRemoveAll{})
	assert.Error(t, err, "nil payload")
}

func TestFromRawReactionClearEmoji(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"guild_id":   "1",
		"channel_id": "20",
		"message_id": "300",
		"emoji":      map[string]any{"id": "55", "name": "gold"},
	})
	require.NoError(t, err)

	ev, err := FromRawReactionClearEmoji(&discordgo.Event{Type: ReactionRemoveEmojiEvent, RawData: raw})
	require.NoError(t, err)
	require.NotNil(t, ev.GuildID)
	assert.Equal(t, uint64(1), *ev.GuildID)
	assert.Equal(t, uint64(300), ev.MessageID)
	assert.Equal(t, "<:gold:55>", ev.Emoji)

	_, err = FromRawReactionClearEmoji(&discordgo.Event{Type: "MESSAGE_CREATE", RawData: raw})
	assert.Error(t, err)

	_, err = FromRawReactionClearEmoji(&discordgo.Event{Type: ReactionRemoveEmojiEvent, RawData: json.RawMessage(`{`)})
	assert.Error(t, err)
}

func TestFromMessageDeleteBulk(t *testing.T) {
	ev, err := FromMessageDeleteBulk(&discordgo.MessageDeleteBulk{
		Messages:  []string{"3", "1", "2"},
		ChannelID: "20",
		GuildID:   "1",
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 1, 2}, ev.MessageIDs)
	assert.Equal(t, uint64(20), ev.ChannelID)

	_, err = FromMessageDeleteBulk(&discordgo.MessageDeleteBulk{Messages: []string{"x"}, ChannelID: "20"})
	assert.Error(t, err)
}

func TestFromMessageUpdateAndDelete(t *testing.T) {
	m := &discordgo.Message{ID: "300", ChannelID: "20", GuildID: "1"}

	edit, err := FromMessageUpdate(&discordgo.MessageUpdate{Message: m})
	require.NoError(t, err)
	assert.Equal(t, uint64(300), edit.MessageID)

	del, err := FromMessageDelete(&discordgo.MessageDelete{Message: m})
	require.NoError(t, err)
	assert.Equal(t, uint64(20), del.ChannelID)

	_, err = FromMessageDelete(&discordgo.MessageDelete{})
	assert.Error(t, err)
}

func TestFromGuildDelete(t *testing.T) {
	ev, ok, err := FromGuildDelete(&discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "1"}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), ev.GuildID)

	_, ok, err = FromGuildDelete(&discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "1", Unavailable: true}})
	require.NoError(t, err)
	assert.False(t, ok, "outage keeps guild data")
}

func TestFromChannelDelete(t *testing.T) {
	ev, err := FromChannelDelete(&discordgo.ChannelDelete{Channel: &discordgo.Channel{ID: "20", GuildID: "1"}})
	require.NoError(t, err)
	assert.Equal(t, uint64(20), ev.ChannelID)
	require.NotNil(t, ev.GuildID)
	assert.Equal(t, uint64(1), *ev.GuildID)
}
