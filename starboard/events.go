package starboard

import (
	"encoding/json"

	"starboard-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// Event is one gateway notification the starboard reacts to. The set of
// implementations is closed; Engine.Handle covers every one of them.
type Event interface {
	eventName() string
}

// ReactionAdd is a reaction added to a message.
type ReactionAdd struct {
	GuildID   *uint64
	ChannelID uint64
	MessageID uint64
	UserID    uint64
	Emoji     string
}

// ReactionRemove is a single reaction removed from a message.
type ReactionRemove struct {
	GuildID   *uint64
	ChannelID uint64
	MessageID uint64
	UserID    uint64
	Emoji     string
}

// ReactionClear is every reaction removed from a message at once.
type ReactionClear struct {
	GuildID   *uint64
	ChannelID uint64
	MessageID uint64
}

// ReactionClearEmoji is every reaction of one emoji removed from a message.
type ReactionClearEmoji struct {
	GuildID   *uint64
	ChannelID uint64
	MessageID uint64
	Emoji     string
}

// MessageEdit is a change to a message's content or attachments.
type MessageEdit struct {
	GuildID   *uint64
	ChannelID uint64
	MessageID uint64
}

type MessageDelete struct {
	GuildID   *uint64
	ChannelID uint64
	MessageID uint64
}

type MessageDeleteBulk struct {
	GuildID    *uint64
	ChannelID  uint64
	MessageIDs []uint64
}

// GuildRemove means the bot left or was removed from a guild.
type GuildRemove struct {
	GuildID uint64
}

type ChannelRemove struct {
	GuildID   *uint64
	ChannelID uint64
}

func (ReactionAdd) eventName() string        { return "reaction_add" }
func (ReactionRemove) eventName() string     { return "reaction_remove" }
func (ReactionClear) eventName() string      { return "reaction_clear" }
func (ReactionClearEmoji) eventName() string { return "reaction_clear_emoji" }
func (MessageEdit) eventName() string        { return "message_edit" }
func (MessageDelete) eventName() string      { return "message_delete" }
func (MessageDeleteBulk) eventName() string  { return "message_delete_bulk" }
func (GuildRemove) eventName() string        { return "guild_remove" }
func (ChannelRemove) eventName() string      { return "channel_remove" }

// EventName returns the metric and log label of ev.
func EventName(ev Event) string {
	return ev.eventName()
}

// EmojiKey is the string form stars are stored and allow-listed under:
// the unicode character, or <:name:id> for custom emoji.
func EmojiKey(e *discordgo.Emoji) string {
	if e == nil {
		return ""
	}
	return e.MessageFormat()
}

type reactionIDs struct {
	guildID   *uint64
	channelID uint64
	messageID uint64
	userID    uint64
}

func parseReaction(r *discordgo.MessageReaction) (reactionIDs, error) {
	var (
		ids reactionIDs
		err error
	)
	if r == nil {
		return ids, errors.New("reaction payload is empty")
	}
	if ids.guildID, err = utils.OptionalID(r.GuildID); err != nil {
		return ids, err
	}
	if ids.channelID, err = utils.ParseID(r.ChannelID); err != nil {
		return ids, err
	}
	if ids.messageID, err = utils.ParseID(r.MessageID); err != nil {
		return ids, err
	}
	if r.UserID != "" {
		if ids.userID, err = utils.ParseID(r.UserID); err != nil {
			return ids, err
		}
	}
	return ids, nil
}

func FromReactionAdd(e *discordgo.MessageReactionAdd) (ReactionAdd, error) {
	ids, err := parseReaction(e.MessageReaction)
	if err != nil {
		return ReactionAdd{}, err
	}
	return ReactionAdd{
		GuildID:   ids.guildID,
		ChannelID: ids.channelID,
		MessageID: ids.messageID,
		UserID:    ids.userID,
		Emoji:     EmojiKey(&e.Emoji),
	}, nil
}

func FromReactionRemove(e *discordgo.MessageReactionRemove) (ReactionRemove, error) {
	ids, err := parseReaction(e.MessageReaction)
	if err != nil {
		return ReactionRemove{}, err
	}
	return ReactionRemove{
		GuildID:   ids.guildID,
		ChannelID: ids.channelID,
		MessageID: ids.messageID,
		UserID:    ids.userID,
		Emoji:     EmojiKey(&e.Emoji),
	}, nil
}

func FromReactionRemoveAll(e *discordgo.MessageReactionRemoveAll) (ReactionClear, error) {
	ids, err := parseReaction(e.MessageReaction)
	if err != nil {
		return ReactionClear{}, err
	}
	return ReactionClear{GuildID: ids.guildID, ChannelID: ids.channelID, MessageID: ids.messageID}, nil
}

// ReactionRemoveEmojiEvent is the gateway type discordgo has no typed
// handler for.
const ReactionRemoveEmojiEvent = "MESSAGE_REACTION_REMOVE_EMOJI"

type rawReactionRemoveEmoji struct {
	GuildID   string          `json:"guild_id"`
	ChannelID string          `json:"channel_id"`
	MessageID string          `json:"message_id"`
	Emoji     discordgo.Emoji `json:"emoji"`
}

// FromRawReactionClearEmoji decodes a raw MESSAGE_REACTION_REMOVE_EMOJI
// dispatch.
func FromRawReactionClearEmoji(e *discordgo.Event) (ReactionClearEmoji, error) {
	if e.Type != ReactionRemoveEmojiEvent {
		return ReactionClearEmoji{}, errors.Errorf("unexpected event type %s", e.Type)
	}
	var raw rawReactionRemoveEmoji
	if err := json.Unmarshal(e.RawData, &raw); err != nil {
		return ReactionClearEmoji{}, errors.Wrap(err, "failed to decode reaction remove emoji")
	}
	ids, err := parseReaction(&discordgo.MessageReaction{
		GuildID:   raw.GuildID,
		ChannelID: raw.ChannelID,
		MessageID: raw.MessageID,
	})
	if err != nil {
		return ReactionClearEmoji{}, err
	}
	return ReactionClearEmoji{
		GuildID:   ids.guildID,
		ChannelID: ids.channelID,
		MessageID: ids.messageID,
		Emoji:     EmojiKey(&raw.Emoji),
	}, nil
}

func fromMessage(m *discordgo.Message) (guildID *uint64, channelID, messageID uint64, err error) {
	if m == nil {
		return nil, 0, 0, errors.New("message payload is empty")
	}
	if guildID, err = utils.OptionalID(m.GuildID); err != nil {
		return
	}
	if channelID, err = utils.ParseID(m.ChannelID); err != nil {
		return
	}
	messageID, err = utils.ParseID(m.ID)
	return
}

func FromMessageUpdate(e *discordgo.MessageUpdate) (MessageEdit, error) {
	guildID, channelID, messageID, err := fromMessage(e.Message)
	if err != nil {
		return MessageEdit{}, err
	}
	return MessageEdit{GuildID: guildID, ChannelID: channelID, MessageID: messageID}, nil
}

func FromMessageDelete(e *discordgo.MessageDelete) (MessageDelete, error) {
	guildID, channelID, messageID, err := fromMessage(e.Message)
	if err != nil {
		return MessageDelete{}, err
	}
	return MessageDelete{GuildID: guildID, ChannelID: channelID, MessageID: messageID}, nil
}

func FromMessageDeleteBulk(e *discordgo.MessageDeleteBulk) (MessageDeleteBulk, error) {
	guildID, err := utils.OptionalID(e.GuildID)
	if err != nil {
		return MessageDeleteBulk{}, err
	}
	channelID, err := utils.ParseID(e.ChannelID)
	if err != nil {
		return MessageDeleteBulk{}, err
	}
	ids := make([]uint64, 0, len(e.Messages))
	for _, s := range e.Messages {
		id, err := utils.ParseID(s)
		if err != nil {
			return MessageDeleteBulk{}, err
		}
		ids = append(ids, id)
	}
	return MessageDeleteBulk{GuildID: guildID, ChannelID: channelID, MessageIDs: ids}, nil
}

// FromGuildDelete converts a guild delete. ok is false when the guild only
// became unavailable, which must not drop its data.
func FromGuildDelete(e *discordgo.GuildDelete) (ev GuildRemove, ok bool, err error) {
	if e.Guild == nil || e.Unavailable {
		return GuildRemove{}, false, nil
	}
	id, err := utils.ParseID(e.ID)
	if err != nil {
		return GuildRemove{}, false, err
	}
	return GuildRemove{GuildID: id}, true, nil
}

func FromChannelDelete(e *discordgo.ChannelDelete) (ChannelRemove, error) {
	if e.Channel == nil {
		return ChannelRemove{}, errors.New("channel payload is empty")
	}
	guildID, err := utils.OptionalID(e.GuildID)
	if err != nil {
		return ChannelRemove{}, err
	}
	channelID, err := utils.ParseID(e.ID)
	if err != nil {
		return ChannelRemove{}, err
	}
	return ChannelRemove{GuildID: guildID, ChannelID: channelID}, nil
}
