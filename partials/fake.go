package partials

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// FakeTransport is an in-memory Transport for tests. Messages live in a
// "remote" map behaving like the API and an optional "state" map behaving
// like the gateway cache.
type FakeTransport struct {
	mu       sync.Mutex
	nextID   uint64
	remote   map[string]*discordgo.Message
	state    map[string]*discordgo.Message
	failures map[string]error

	// Self authors every message sent through the fake.
	Self *discordgo.User
	// BeforeSend, when set, runs at the start of every send.
	BeforeSend func(channelID string)

	Sent    []*discordgo.MessageSend
	Edits   []*discordgo.MessageEdit
	Deleted []string
	Fetched []string
}

// NewFakeTransport returns a fake whose sent messages get ids counting up
// from firstID.
func NewFakeTransport(firstID uint64) *FakeTransport {
	return &FakeTransport{
		nextID:   firstID,
		remote:   make(map[string]*discordgo.Message),
		state:    make(map[string]*discordgo.Message),
		failures: make(map[string]error),
		Self:     &discordgo.User{ID: "1", Username: "starboard", Bot: true},
	}
}

// NewRESTError builds the error discordgo returns for a failed request.
func NewRESTError(status, code int) *discordgo.RESTError {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status, Status: http.StatusText(status)},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: http.StatusText(status)},
	}
}

// Put makes m fetchable through the API.
func (f *FakeTransport) Put(m *discordgo.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remote[m.ID] = m
}

// PutState makes m visible in the gateway state.
func (f *FakeTransport) PutState(m *discordgo.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state[m.ID] = m
}

// Get returns a message as the API currently sees it.
func (f *FakeTransport) Get(id string) (*discordgo.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.remote[id]
	return m, ok
}

// Fail makes every call of op ("send", "edit", "delete", "fetch") on
// target return err. Send targets are channel ids, the rest message ids.
func (f *FakeTransport) Fail(op, target string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op+":"+target] = err
}

func (f *FakeTransport) failure(op, target string) error {
	return f.failures[op+":"+target]
}

func (f *FakeTransport) StateMessage(channelID, messageID string) (*discordgo.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.state[messageID]
	if !ok || m.ChannelID != channelID {
		return nil, false
	}
	return m, true
}

func (f *FakeTransport) FetchMessage(_ context.Context, channelID, messageID string) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fetched = append(f.Fetched, messageID)
	if err := f.failure("fetch", messageID); err != nil {
		return nil, err
	}
	m, ok := f.remote[messageID]
	if !ok || m.ChannelID != channelID {
		return nil, NewRESTError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)
	}
	return m, nil
}

func (f *FakeTransport) SendMessage(_ context.Context, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	if f.BeforeSend != nil {
		f.BeforeSend(channelID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("send", channelID); err != nil {
		return nil, err
	}
	f.Sent = append(f.Sent, data)
	m := &discordgo.Message{
		ID:        strconv.FormatUint(f.nextID, 10),
		ChannelID: channelID,
		Content:   data.Content,
		Embeds:    data.Embeds,
		Author:    f.Self,
	}
	f.nextID++
	f.remote[m.ID] = m
	return m, nil
}

func (f *FakeTransport) EditMessage(_ context.Context, edit *discordgo.MessageEdit) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("edit", edit.ID); err != nil {
		return nil, err
	}
	m, ok := f.remote[edit.ID]
	if !ok || m.ChannelID != edit.Channel {
		return nil, NewRESTError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)
	}
	f.Edits = append(f.Edits, edit)
	if edit.Content != nil {
		m.Content = *edit.Content
	}
	if edit.Embeds != nil {
		m.Embeds = *edit.Embeds
	}
	return m, nil
}

func (f *FakeTransport) DeleteMessage(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("delete", messageID); err != nil {
		return err
	}
	m, ok := f.remote[messageID]
	if !ok || m.ChannelID != channelID {
		return NewRESTError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)
	}
	delete(f.remote, messageID)
	delete(f.state, messageID)
	f.Deleted = append(f.Deleted, messageID)
	return nil
}
