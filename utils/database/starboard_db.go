package database

import (
	"context"
	"database/sql"

	"starboard-bot/model"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// AddStarboardMessage maps a source message to its mirror. Both message
// rows must already exist. It returns false when either side is already
// mapped.
func (q *Query) AddStarboardMessage(ctx context.Context, messageID, starMessageID uint64) (bool, error) {
	res, err := q.exec(ctx, `
		INSERT INTO starboard_message (message_id, star_message_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING`,
		messageID, starMessageID)
	if err != nil {
		return false, errors.Wrapf(err, "failed to map message %d to %d", messageID, starMessageID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}

// GetStarboardMessage returns the mirror of a source message.
func (q *Query) GetStarboardMessage(ctx context.Context, sourceID uint64) (uint64, bool, error) {
	var mirrorID uint64
	err := q.get(ctx, &mirrorID, `SELECT star_message_id FROM starboard_message WHERE message_id = ?`, sourceID)
	return lookupResult(mirrorID, err, "failed to get starboard message for %d", sourceID)
}

// GetSourceMessage returns the source of a mirror message.
func (q *Query) GetSourceMessage(ctx context.Context, mirrorID uint64) (uint64, bool, error) {
	var sourceID uint64
	err := q.get(ctx, &sourceID, `SELECT message_id FROM starboard_message WHERE star_message_id = ?`, mirrorID)
	return lookupResult(sourceID, err, "failed to get source message for %d", mirrorID)
}

func lookupResult(id uint64, err error, format string, args ...any) (uint64, bool, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, format, args...)
	}
	return id, true, nil
}

// GetStarboardMessages returns the mirrors of any of the given sources
// along with each mirror's channel and guild, in one query.
func (q *Query) GetStarboardMessages(ctx context.Context, sourceIDs []uint64) ([]model.StarboardMessage, error) {
	if _, err := q.conn(); err != nil {
		return nil, err
	}
	if len(sourceIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT sm.message_id, sm.star_message_id, m.channel_id, c.guild_id
		FROM starboard_message sm
		JOIN message m ON m.id = sm.star_message_id
		JOIN channel c ON c.id = m.channel_id
		WHERE sm.message_id IN (?)`,
		sourceIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build starboard lookup")
	}

	var mirrors []model.StarboardMessage
	if err := q.selectAll(ctx, &mirrors, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to get starboard messages")
	}
	return mirrors, nil
}

// GetMessageRef returns where a stored message lives.
func (q *Query) GetMessageRef(ctx context.Context, id uint64) (model.MessageRef, bool, error) {
	var ref model.MessageRef
	err := q.get(ctx, &ref, `
		SELECT m.id, m.channel_id, c.guild_id
		FROM message m
		JOIN channel c ON c.id = m.channel_id
		WHERE m.id = ?`,
		id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MessageRef{}, false, nil
	}
	if err != nil {
		return model.MessageRef{}, false, errors.Wrapf(err, "failed to get message %d", id)
	}
	return ref, true, nil
}
