package database

import (
	"context"

	"starboard-bot/model"

	"github.com/pkg/errors"
)

// AddMessageStar records one star. The message and its parents are created
// as needed; a duplicate star is ignored.
func (q *Query) AddMessageStar(ctx context.Context, messageID, userID uint64, emoji string, channelID uint64, guildID *uint64) error {
	if _, err := q.conn(); err != nil {
		return err
	}
	if err := q.ensureMessage(ctx, messageID, channelID, userID, guildID); err != nil {
		return err
	}
	if err := q.AddUser(ctx, userID); err != nil {
		return err
	}
	_, err := q.exec(ctx, `
		INSERT INTO message_star (message_id, user_id, emoji) VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING`,
		messageID, userID, emoji)
	if err != nil {
		return errors.Wrapf(err, "failed to add star on message %d", messageID)
	}
	return nil
}

func (q *Query) RemoveMessageStar(ctx context.Context, messageID, userID uint64, emoji string) error {
	_, err := q.exec(ctx, `DELETE FROM message_star WHERE message_id = ? AND user_id = ? AND emoji = ?`,
		messageID, userID, emoji)
	if err != nil {
		return errors.Wrapf(err, "failed to remove star on message %d", messageID)
	}
	return nil
}

// ClearMessageStars removes every star on a message, or only those of one
// emoji when emoji is non-nil.
func (q *Query) ClearMessageStars(ctx context.Context, messageID uint64, emoji *string) error {
	var err error
	if emoji == nil {
		_, err = q.exec(ctx, `DELETE FROM message_star WHERE message_id = ?`, messageID)
	} else {
		_, err = q.exec(ctx, `DELETE FROM message_star WHERE message_id = ? AND emoji = ?`, messageID, *emoji)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to clear stars on message %d", messageID)
	}
	return nil
}

// GetMessageStarTotal counts stars across every emoji.
func (q *Query) GetMessageStarTotal(ctx context.Context, messageID uint64) (int, error) {
	var total int
	if err := q.get(ctx, &total, `SELECT COUNT(*) FROM message_star WHERE message_id = ?`, messageID); err != nil {
		return 0, errors.Wrapf(err, "failed to count stars on message %d", messageID)
	}
	return total, nil
}

// GetStarCounts returns the per-emoji star counts of a message, ordered by
// when each emoji was first used.
func (q *Query) GetStarCounts(ctx context.Context, messageID uint64) ([]model.StarCount, error) {
	rows, err := q.queryx(ctx, `
		SELECT emoji, COUNT(*) AS count FROM message_star
		WHERE message_id = ?
		GROUP BY emoji
		ORDER BY MIN(id)`,
		messageID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query star counts for message %d", messageID)
	}
	defer rows.Close()

	var counts []model.StarCount
	for rows.Next() {
		var c model.StarCount
		if err := rows.StructScan(&c); err != nil {
			return nil, errors.Wrap(err, "failed to scan star count")
		}
		counts = append(counts, c)
	}
	return counts, errors.Wrap(rows.Err(), "failed to read star counts")
}
