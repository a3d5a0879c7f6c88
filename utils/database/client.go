package database

import (
	"context"
	"database/sql"
	"slices"

	"starboard-bot/cache"
	"starboard-bot/metrics"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotAcquired is returned by every Query operation used outside of
	// the Acquire callback that produced it.
	ErrNotAcquired = errors.New("database query used without an acquired connection")
	// ErrInvariant marks store contents that can only exist through a bug
	// or manual tampering.
	ErrInvariant = errors.New("store invariant violated")
)

// AcquireOptions controls how Acquire sets up a connection.
type AcquireOptions struct {
	Transaction bool
}

// Client owns the connection pool and the deduplicating cache.
type Client struct {
	db    *sqlx.DB
	cache cache.Set
	log   *logrus.Entry
}

// NewClient returns a gateway over db. set may be nil to disable caching.
func NewClient(db *sqlx.DB, set cache.Set) *Client {
	return &Client{
		db:    db,
		cache: set,
		log:   logrus.WithField("module", "database"),
	}
}

// DB returns the underlying pool.
func (c *Client) DB() *sqlx.DB {
	return c.db
}

// Acquire takes a dedicated connection from the pool for the duration of
// fn and hands fn a Query bound to it. With Transaction set, the work is
// committed when fn returns nil and rolled back otherwise, including when
// fn panics. The Query must not be used after fn returns.
func (c *Client) Acquire(ctx context.Context, opts AcquireOptions, fn func(q *Query) error) (err error) {
	conn, err := c.db.Connx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to acquire connection")
	}
	defer conn.Close()

	q := &Query{client: c, seen: make(map[string]struct{})}
	defer q.release()

	if !opts.Transaction {
		q.ext = conn
		return fn(q)
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	q.ext = tx
	q.tx = true

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				c.log.WithError(rbErr).Warn("Rollback failed")
			}
			return
		}
		if err = tx.Commit(); err != nil {
			err = errors.Wrap(err, "failed to commit transaction")
			return
		}
		q.flushPending(ctx)
	}()

	return fn(q)
}

// execer is the subset of *sqlx.Conn and *sqlx.Tx the gateway needs.
type execer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	Rebind(query string) string
}

// Query is a handle on an acquired connection. It is passed explicitly
// down every call chain that touches the store.
type Query struct {
	client *Client
	ext    execer
	tx     bool

	// keys written during this acquisition; in a transaction they reach
	// the shared cache only after commit
	seen    map[string]struct{}
	pending []string
}

func (q *Query) release() {
	q.ext = nil
	q.pending = nil
}

func (q *Query) conn() (execer, error) {
	if q == nil || q.ext == nil {
		return nil, ErrNotAcquired
	}
	return q.ext, nil
}

func (q *Query) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ext, err := q.conn()
	if err != nil {
		return nil, err
	}
	return ext.ExecContext(ctx, ext.Rebind(query), args...)
}

func (q *Query) get(ctx context.Context, dest any, query string, args ...any) error {
	ext, err := q.conn()
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, ext, dest, ext.Rebind(query), args...)
}

func (q *Query) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	ext, err := q.conn()
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, ext, dest, ext.Rebind(query), args...)
}

func (q *Query) queryx(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	ext, err := q.conn()
	if err != nil {
		return nil, err
	}
	return ext.QueryxContext(ctx, ext.Rebind(query), args...)
}

// cached reports whether key was recently written. Cache failures count
// as a miss.
func (q *Query) cached(ctx context.Context, bucket, key string) bool {
	if _, ok := q.seen[key]; ok {
		return true
	}
	if q.client.cache == nil {
		return false
	}
	ok, err := q.client.cache.Exists(ctx, key)
	if err != nil {
		q.client.log.WithError(err).WithField("key", key).Warn("Cache lookup failed")
		ok = false
	}
	if ok {
		metrics.CacheLookups.WithLabelValues(bucket, "hit").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues(bucket, "miss").Inc()
	}
	return ok
}

func (q *Query) remember(ctx context.Context, key string) {
	q.seen[key] = struct{}{}
	if q.tx {
		q.pending = append(q.pending, key)
		return
	}
	q.addToCache(ctx, key)
}

func (q *Query) forget(ctx context.Context, keys ...string) {
	for _, key := range keys {
		delete(q.seen, key)
		q.pending = slices.DeleteFunc(q.pending, func(k string) bool { return k == key })
		if q.client.cache == nil {
			continue
		}
		if err := q.client.cache.Discard(ctx, key); err != nil {
			q.client.log.WithError(err).WithField("key", key).Warn("Cache discard failed")
		}
	}
}

func (q *Query) flushPending(ctx context.Context) {
	for _, key := range q.pending {
		q.addToCache(ctx, key)
	}
	q.pending = nil
}

func (q *Query) addToCache(ctx context.Context, key string) {
	if q.client.cache == nil {
		return
	}
	if err := q.client.cache.Add(ctx, key); err != nil {
		q.client.log.WithError(err).WithField("key", key).Warn("Cache add failed")
	}
}

func nullableID(id *uint64) any {
	if id == nil {
		return nil
	}
	return int64(*id)
}
