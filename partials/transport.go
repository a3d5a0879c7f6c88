// Package partials resolves messages the store knows about into handles
// that can be edited, deleted or fetched without a full message object.
package partials

import (
	"context"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// Transport is the part of the Discord API the starboard talks to.
type Transport interface {
	// StateMessage looks a message up in the local gateway state only.
	StateMessage(channelID, messageID string) (*discordgo.Message, bool)
	FetchMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	SendMessage(ctx context.Context, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error)
	EditMessage(ctx context.Context, edit *discordgo.MessageEdit) (*discordgo.Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// SessionTransport adapts a discordgo session.
type SessionTransport struct {
	Session *discordgo.Session
}

func NewSessionTransport(s *discordgo.Session) *SessionTransport {
	return &SessionTransport{Session: s}
}

func (t *SessionTransport) StateMessage(channelID, messageID string) (*discordgo.Message, bool) {
	if t.Session.State == nil {
		return nil, false
	}
	m, err := t.Session.State.Message(channelID, messageID)
	if err != nil {
		return nil, false
	}
	return m, true
}

func (t *SessionTransport) FetchMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	return t.Session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
}

func (t *SessionTransport) SendMessage(ctx context.Context, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	return t.Session.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx))
}

func (t *SessionTransport) EditMessage(ctx context.Context, edit *discordgo.MessageEdit) (*discordgo.Message, error) {
	return t.Session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
}

func (t *SessionTransport) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return t.Session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

// IsForbidden reports whether err is a Discord permission failure.
func IsForbidden(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden
}

// IsNotFound reports whether err means the target message or channel no
// longer exists.
func IsNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
