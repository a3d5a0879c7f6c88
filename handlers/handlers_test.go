package handlers

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"starboard-bot/cache"
	"starboard-bot/model"
	"starboard-bot/starboard"
	"starboard-bot/utils/database"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sinkFunc func(ctx context.Context, cfg *model.Config, ev starboard.Event) error

func (f sinkFunc) Handle(ctx context.Context, cfg *model.Config, ev starboard.Event) error {
	return f(ctx, cfg, ev)
}

func newStore(t *testing.T) *database.Client {
	t.Helper()
	db, err := database.Open(model.DatabaseConfig{DSN: "file:" + filepath.Join(t.TempDir(), "handlers.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return database.NewClient(db, cache.NewMemorySet(time.Hour))
}

func TestDispatch_PassesEventWithDeadline(t *testing.T) {
	cfg := &model.Config{Version: 7}
	var got starboard.Event
	sink := sinkFunc(func(ctx context.Context, c *model.Config, ev starboard.Event) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.Same(t, cfg, c)
		got = ev
		return nil
	})

	dispatch(context.Background(), sink, cfg, starboard.MessageDelete{MessageID: 3}, nil)
	assert.Equal(t, starboard.MessageDelete{MessageID: 3}, got)
}

func TestDispatch_ContainsFailures(t *testing.T) {
	hook := test.NewLocal(logrus.StandardLogger())
	defer hook.Reset()

	called := false
	sink := sinkFunc(func(context.Context, *model.Config, starboard.Event) error {
		called = true
		return nil
	})
	dispatch(context.Background(), sink, &model.Config{}, starboard.MessageDelete{}, errors.New("bad id"))
	assert.False(t, called, "malformed events are dropped")

	failing := sinkFunc(func(context.Context, *model.Config, starboard.Event) error {
		return errors.New("store down")
	})
	dispatch(context.Background(), failing, &model.Config{}, starboard.MessageDelete{}, nil)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	panicking := sinkFunc(func(context.Context, *model.Config, starboard.Event) error {
		panic("boom")
	})
	assert.NotPanics(t, func() {
		dispatch(context.Background(), panicking, &model.Config{}, starboard.GuildRemove{GuildID: 1}, nil)
	})
	assert.Equal(t, "boom", hook.LastEntry().Data["panic"])
}

func TestSetChannel_Responses(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	ch := uint64(50)

	reply, err := setChannel(ctx, store, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "There is already no starboard channel set!", reply)

	reply, err = setChannel(ctx, store, 1, &ch)
	require.NoError(t, err)
	assert.Equal(t, "Successfully set the starboard channel to <#50>!", reply)

	reply, err = setChannel(ctx, store, 1, &ch)
	require.NoError(t, err)
	assert.Equal(t, "<#50> is already the starboard channel!", reply)

	reply, err = setChannel(ctx, store, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "Successfully unset the starboard channel!", reply)
}

func TestSetThreshold(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	reply, err := setThreshold(ctx, store, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "The current star threshold is 3!", reply)

	reply, err = setThreshold(ctx, store, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "Successfully set the star threshold to 5!", reply)

	choices, err := thresholdChoices(ctx, store, 1)
	require.NoError(t, err)
	require.Len(t, choices, 1)
	assert.Equal(t, 5, choices[0].Value)
	assert.Equal(t, "Current star threshold: 5", choices[0].Name)
}

func TestSetMaxAgeAndShow(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for _, raw := range []string{"soon", "10000000000000", "200000w"} {
		reply, err := setMaxAge(ctx, store, 1, raw)
		require.NoError(t, err)
		assert.Contains(t, reply, "Could not understand", raw)
	}

	reply, err := showConfig(ctx, store, 1)
	require.NoError(t, err)
	assert.Contains(t, reply, "**Max message age:** unlimited", "rejected input is not stored")

	reply, err = setMaxAge(ctx, store, 1, "7d")
	require.NoError(t, err)
	assert.Equal(t, "Messages older than 7d will no longer reach the starboard.", reply)

	ch := uint64(50)
	_, err = setChannel(ctx, store, 1, &ch)
	require.NoError(t, err)

	reply, err = showConfig(ctx, store, 1)
	require.NoError(t, err)
	assert.Equal(t, "**Starboard channel:** <#50>\n**Star threshold:** 3\n**Max message age:** 7d", reply)

	reply, err = setMaxAge(ctx, store, 1, "0")
	require.NoError(t, err)
	assert.Equal(t, "Successfully removed the message age limit!", reply)

	reply, err = showConfig(ctx, store, 1)
	require.NoError(t, err)
	assert.Contains(t, reply, "**Max message age:** unlimited")
}

func TestSystemInfoEmbed(t *testing.T) {
	embed := systemInfoEmbed(systemStats{
		CPUCount: 8,
		MemUsed:  1 << 30,
		MemTotal: 4 << 30,
		Uptime:   26 * time.Hour,
		Rows:     model.RowCounts{Messages: 12345, Stars: 7},
	}, time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC))

	values := map[string]string{}
	for _, f := range embed.Fields {
		values[f.Name] = f.Value
	}
	assert.Equal(t, "unknown", values["💻 OS"])
	assert.Equal(t, "8", values["🔼 CPUs"])
	assert.Equal(t, "0.0% (1.0 GiB / 4.0 GiB)", values["🧠 Memory"])
	assert.Equal(t, "1d2h", values["⌛ Uptime"])
	assert.Equal(t, "12,345", values["🗨️ Tracked messages"])
	assert.Equal(t, "System monitor・09:30", embed.Footer.Text)
}
