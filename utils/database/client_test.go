package database

import (
	"context"
	"testing"
	"time"

	"starboard-bot/cache"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return NewClient(sqlx.NewDb(raw, "sqlmock"), cache.NewMemorySet(time.Hour)), mock
}

func TestQuery_NotAcquired(t *testing.T) {
	ctx := context.Background()

	var q *Query
	assert.ErrorIs(t, q.AddGuild(ctx, 1), ErrNotAcquired)
	_, err := q.GetMessageStarTotal(ctx, 1)
	assert.ErrorIs(t, err, ErrNotAcquired)

	client, mock := newMockClient(t)
	var leaked *Query
	require.NoError(t, client.Acquire(ctx, AcquireOptions{}, func(q *Query) error {
		leaked = q
		return nil
	}))
	assert.ErrorIs(t, leaked.AddUser(ctx, 1), ErrNotAcquired)
	_, err = leaked.GetStarboardMessages(ctx, []uint64{1})
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddGuild_CacheSkipsSecondWrite(t *testing.T) {
	ctx := context.Background()
	client, mock := newMockClient(t)

	mock.ExpectExec(`INSERT INTO guild`).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, client.Acquire(ctx, AcquireOptions{}, func(q *Query) error {
		require.NoError(t, q.AddGuild(ctx, 1))
		return q.AddGuild(ctx, 1)
	}))
	// a later acquisition still sees the cached key
	require.NoError(t, client.Acquire(ctx, AcquireOptions{}, func(q *Query) error {
		return q.AddGuild(ctx, 1)
	}))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddChannel_EnsuresGuildOnce(t *testing.T) {
	ctx := context.Background()
	client, mock := newMockClient(t)
	guildID := uint64(10)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO guild`).WithArgs(10).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO channel`).WithArgs(20, 10).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, client.Acquire(ctx, AcquireOptions{Transaction: true}, func(q *Query) error {
		require.NoError(t, q.AddChannel(ctx, 20, &guildID))
		return q.AddChannel(ctx, 20, &guildID)
	}))
	require.NoError(t, client.Acquire(ctx, AcquireOptions{}, func(q *Query) error {
		return q.AddChannel(ctx, 20, &guildID)
	}))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddUser_CacheSkipsSecondWrite(t *testing.T) {
	ctx := context.Background()
	client, mock := newMockClient(t)

	mock.ExpectExec(`INSERT INTO "user"`).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, client.Acquire(ctx, AcquireOptions{}, func(q *Query) error {
		require.NoError(t, q.AddUser(ctx, 5))
		return q.AddUser(ctx, 5)
	}))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMessage_CacheSkipsSecondWrite(t *testing.T) {
	ctx := context.Background()
	client, mock := newMockClient(t)
	guildID := uint64(10)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO guild`).WithArgs(10).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO channel`).WithArgs(20, 10).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "user"`).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO message`).WithArgs(300, 20, 5).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, client.Acquire(ctx, AcquireOptions{Transaction: true}, func(q *Query) error {
		require.NoError(t, q.AddMessage(ctx, 300, 20, 5, &guildID))
		return q.AddMessage(ctx, 300, 20, 5, &guildID)
	}))
	require.NoError(t, client.Acquire(ctx, AcquireOptions{}, func(q *Query) error {
		return q.AddMessage(ctx, 300, 20, 5, &guildID)
	}))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_RollbackKeepsCacheClean(t *testing.T) {
	ctx := context.Background()
	client, mock := newMockClient(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO guild`).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()
	mock.ExpectExec(`INSERT INTO guild`).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))

	err := client.Acquire(ctx, AcquireOptions{Transaction: true}, func(q *Query) error {
		require.NoError(t, q.AddGuild(ctx, 1))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// the rolled back insert must hit the store again
	require.NoError(t, client.Acquire(ctx, AcquireOptions{}, func(q *Query) error {
		return q.AddGuild(ctx, 1)
	}))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_PanicRollsBack(t *testing.T) {
	ctx := context.Background()
	client, mock := newMockClient(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = client.Acquire(ctx, AcquireOptions{Transaction: true}, func(q *Query) error {
			panic("kaboom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_CommitFailure(t *testing.T) {
	ctx := context.Background()
	client, mock := newMockClient(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "user"`).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))
	mock.ExpectExec(`INSERT INTO "user"`).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))

	err := client.Acquire(ctx, AcquireOptions{Transaction: true}, func(q *Query) error {
		return q.AddUser(ctx, 5)
	})
	require.Error(t, err)

	require.NoError(t, client.Acquire(ctx, AcquireOptions{}, func(q *Query) error {
		return q.AddUser(ctx, 5)
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
