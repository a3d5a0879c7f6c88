package partials

import (
	"context"
	"fmt"

	"starboard-bot/utils"
	"starboard-bot/utils/database"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// PartialMessage identifies a message well enough to act on it.
type PartialMessage struct {
	ID        uint64
	ChannelID uint64
	GuildID   *uint64
}

// JumpURL links to the message in the Discord client.
func (p *PartialMessage) JumpURL() string {
	guild := "@me"
	if p.GuildID != nil {
		guild = utils.FormatID(*p.GuildID)
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%d/%d", guild, p.ChannelID, p.ID)
}

// Edit replaces the content and embed of the message. A nil argument
// leaves that part untouched.
func (p *PartialMessage) Edit(ctx context.Context, t Transport, content *string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	edit := discordgo.NewMessageEdit(utils.FormatID(p.ChannelID), utils.FormatID(p.ID))
	if content != nil {
		edit.SetContent(*content)
	}
	if embed != nil {
		edit.SetEmbed(embed)
	}
	return t.EditMessage(ctx, edit)
}

func (p *PartialMessage) Delete(ctx context.Context, t Transport) error {
	return t.DeleteMessage(ctx, utils.FormatID(p.ChannelID), utils.FormatID(p.ID))
}

// Fetch downloads the full message.
func (p *PartialMessage) Fetch(ctx context.Context, t Transport) (*discordgo.Message, error) {
	return t.FetchMessage(ctx, utils.FormatID(p.ChannelID), utils.FormatID(p.ID))
}

// Resolver turns stored message ids into partial or full messages.
type Resolver struct {
	transport Transport
}

func NewResolver(t Transport) *Resolver {
	return &Resolver{transport: t}
}

func (r *Resolver) Transport() Transport {
	return r.transport
}

// PartialMessage builds a handle from the store alone. It returns nil when
// the store has never seen the message.
func (r *Resolver) PartialMessage(ctx context.Context, q *database.Query, id uint64) (*PartialMessage, error) {
	ref, ok, err := q.GetMessageRef(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	p := &PartialMessage{ID: ref.MessageID, ChannelID: ref.ChannelID}
	if ref.GuildID.Valid {
		guildID := uint64(ref.GuildID.Int64)
		p.GuildID = &guildID
	}
	return p, nil
}

// Message returns the full message, from the gateway state when it is
// there and from the API otherwise. It returns nil when the store has never
// seen the message. Fetch errors are returned unchanged so callers can
// classify them.
func (r *Resolver) Message(ctx context.Context, q *database.Query, id uint64) (*discordgo.Message, error) {
	p, err := r.PartialMessage(ctx, q, id)
	if err != nil || p == nil {
		return nil, err
	}
	return r.Full(ctx, p)
}

// Full upgrades a partial handle to the full message without touching the
// store.
func (r *Resolver) Full(ctx context.Context, p *PartialMessage) (*discordgo.Message, error) {
	if m, ok := r.transport.StateMessage(utils.FormatID(p.ChannelID), utils.FormatID(p.ID)); ok {
		return m, nil
	}
	m, err := p.Fetch(ctx, r.transport)
	if err != nil {
		return nil, errors.WithMessagef(err, "fetch message %d", p.ID)
	}
	return m, nil
}
