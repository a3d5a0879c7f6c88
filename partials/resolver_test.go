package partials

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"starboard-bot/cache"
	"starboard-bot/model"
	"starboard-bot/utils/database"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *database.Client {
	t.Helper()
	db, err := database.Open(model.DatabaseConfig{
		DSN: "file:" + filepath.Join(t.TempDir(), "partials.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return database.NewClient(db, cache.NewMemorySet(time.Hour))
}

func TestPartialMessage_JumpURL(t *testing.T) {
	guild := uint64(1)
	p := &PartialMessage{ID: 3, ChannelID: 2, GuildID: &guild}
	assert.Equal(t, "https://discord.com/channels/1/2/3", p.JumpURL())

	p.GuildID = nil
	assert.Equal(t, "https://discord.com/channels/@me/2/3", p.JumpURL())
}

func TestResolver_PartialAndFull(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	transport := NewFakeTransport(1000)
	resolver := NewResolver(transport)
	guild := uint64(1)

	transport.Put(&discordgo.Message{ID: "100", ChannelID: "10", Content: "remote"})

	err := store.Acquire(ctx, database.AcquireOptions{}, func(q *database.Query) error {
		require.NoError(t, q.AddMessage(ctx, 100, 10, 5, &guild))

		p, err := resolver.PartialMessage(ctx, q, 100)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, uint64(10), p.ChannelID)
		require.NotNil(t, p.GuildID)
		assert.Equal(t, guild, *p.GuildID)

		missing, err := resolver.PartialMessage(ctx, q, 404)
		require.NoError(t, err)
		assert.Nil(t, missing)

		m, err := resolver.Message(ctx, q, 100)
		require.NoError(t, err)
		assert.Equal(t, "remote", m.Content)
		assert.Equal(t, []string{"100"}, transport.Fetched)

		// a state hit needs no request
		transport.PutState(&discordgo.Message{ID: "100", ChannelID: "10", Content: "state"})
		m, err = resolver.Message(ctx, q, 100)
		require.NoError(t, err)
		assert.Equal(t, "state", m.Content)
		assert.Len(t, transport.Fetched, 1)

		m, err = resolver.Message(ctx, q, 404)
		require.NoError(t, err)
		assert.Nil(t, m)
		return nil
	})
	require.NoError(t, err)
}

func TestResolver_FetchErrorPropagates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	transport := NewFakeTransport(1000)
	resolver := NewResolver(transport)

	err := store.Acquire(ctx, database.AcquireOptions{}, func(q *database.Query) error {
		require.NoError(t, q.AddMessage(ctx, 100, 10, 5, nil))
		_, err := resolver.Message(ctx, q, 100)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		return nil
	})
	require.NoError(t, err)
}

func TestPartialMessage_EditAndDelete(t *testing.T) {
	ctx := context.Background()
	transport := NewFakeTransport(1000)
	transport.Put(&discordgo.Message{ID: "100", ChannelID: "10", Content: "old"})
	p := &PartialMessage{ID: 100, ChannelID: 10}

	content := "new"
	m, err := p.Edit(ctx, transport, &content, nil)
	require.NoError(t, err)
	assert.Equal(t, "new", m.Content)

	embed := &discordgo.MessageEmbed{Description: "body"}
	m, err = p.Edit(ctx, transport, nil, embed)
	require.NoError(t, err)
	assert.Equal(t, "new", m.Content)
	require.Len(t, m.Embeds, 1)
	assert.Equal(t, "body", m.Embeds[0].Description)

	require.NoError(t, p.Delete(ctx, transport))
	assert.True(t, IsNotFound(p.Delete(ctx, transport)))
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsForbidden(NewRESTError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions)))
	assert.True(t, IsForbidden(NewRESTError(http.StatusBadRequest, discordgo.ErrCodeMissingAccess)))
	assert.True(t, IsForbidden(errors.Wrap(NewRESTError(http.StatusForbidden, 0), "send")))
	assert.False(t, IsForbidden(NewRESTError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)))
	assert.False(t, IsForbidden(errors.New("plain")))

	assert.True(t, IsNotFound(NewRESTError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)))
	assert.True(t, IsNotFound(NewRESTError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel)))
	assert.False(t, IsNotFound(NewRESTError(http.StatusForbidden, discordgo.ErrCodeMissingAccess)))
	assert.False(t, IsNotFound(nil))
}
