package starboard

import (
	"context"
	"sort"

	"starboard-bot/metrics"
	"starboard-bot/model"
	"starboard-bot/partials"
	"starboard-bot/utils"
	"starboard-bot/utils/database"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

type action int

const (
	actionNone action = iota
	actionCreate
	actionUpdate
	actionDelete
)

// plan is what one star change requires of the mirror, decided inside the
// store transaction and carried out after it commits.
type plan struct {
	action    action
	guildID   uint64
	source    *partials.PartialMessage
	mirror    *partials.PartialMessage
	channelID uint64
	content   string
}

var txOptions = database.AcquireOptions{Transaction: true}

// syncStars runs mutate and brings the mirror of messageID in line with the
// resulting star total. The message lock spans all three phases so two
// events for one message never decide on the same stale state.
func (e *Engine) syncStars(ctx context.Context, cfg *model.Config, guildID, messageID uint64, mutate func(q *database.Query) error) (string, error) {
	unlock := e.locks.Lock(messageID)
	defer unlock()

	var p plan
	err := e.store.Acquire(ctx, txOptions, func(q *database.Query) error {
		if err := mutate(q); err != nil {
			return err
		}
		var err error
		p, err = e.decide(ctx, q, guildID, messageID)
		return err
	})
	if err != nil {
		return outcomeError, err
	}

	switch p.action {
	case actionCreate:
		return e.createMirror(ctx, cfg, p)
	case actionUpdate:
		return e.updateMirror(ctx, p)
	case actionDelete:
		return e.deleteMirror(ctx, p)
	default:
		return outcomeOK, nil
	}
}

func (e *Engine) decide(ctx context.Context, q *database.Query, guildID, messageID uint64) (plan, error) {
	p := plan{guildID: guildID}

	mirrorID, hasMirror, err := q.GetStarboardMessage(ctx, messageID)
	if err != nil {
		return p, err
	}
	total, err := q.GetMessageStarTotal(ctx, messageID)
	if err != nil {
		return p, err
	}
	guildCfg, err := q.GetGuildConfig(ctx, guildID)
	if err != nil {
		return p, err
	}
	reached := total >= database.ThresholdOf(guildCfg)

	if hasMirror {
		if p.mirror, err = e.resolver.PartialMessage(ctx, q, mirrorID); err != nil || p.mirror == nil {
			return p, err
		}
		if !reached {
			p.action = actionDelete
			return p, nil
		}
		return e.withContent(ctx, q, p, actionUpdate, messageID)
	}

	if !reached || !guildCfg.StarboardChannelID.Valid {
		return p, nil
	}
	if maxAge := guildCfg.MaxAge(); maxAge > 0 && e.clock.Now().Sub(utils.SnowflakeTime(messageID)) > maxAge {
		e.log.WithFields(logrus.Fields{"message_id": messageID, "max_age": maxAge}).Debug("Message too old for the starboard")
		return p, nil
	}
	p.channelID = uint64(guildCfg.StarboardChannelID.Int64)
	return e.withContent(ctx, q, p, actionCreate, messageID)
}

func (e *Engine) withContent(ctx context.Context, q *database.Query, p plan, a action, messageID uint64) (plan, error) {
	source, err := e.resolver.PartialMessage(ctx, q, messageID)
	if err != nil || source == nil {
		return p, err
	}
	counts, err := q.GetStarCounts(ctx, messageID)
	if err != nil {
		return p, err
	}
	p.source = source
	p.content = FormatContent(counts, source.JumpURL())
	p.action = a
	return p, nil
}

func (e *Engine) createMirror(ctx context.Context, cfg *model.Config, p plan) (string, error) {
	log := e.log.WithFields(logrus.Fields{"guild_id": p.guildID, "message_id": p.source.ID})

	source, err := e.resolver.Full(ctx, p.source)
	if err != nil {
		metrics.MirrorOperations.WithLabelValues("create", outcomeError).Inc()
		return outcomeError, err
	}

	transport := e.resolver.Transport()
	sent, err := transport.SendMessage(ctx, utils.FormatID(p.channelID), &discordgo.MessageSend{
		Content:         p.content,
		Embeds:          []*discordgo.MessageEmbed{BuildEmbed(source, embedColor(cfg))},
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	})
	if partials.IsForbidden(err) {
		metrics.MirrorOperations.WithLabelValues("create", "forbidden").Inc()
		var cleared bool
		err = e.store.Acquire(ctx, txOptions, func(q *database.Query) error {
			var err error
			cleared, err = q.ClearStarboardChannel(ctx, p.guildID, p.channelID)
			return err
		})
		if err != nil {
			return outcomeError, err
		}
		if cleared {
			log.WithField("channel_id", p.channelID).Warn("Cannot post to starboard channel, unset it")
		}
		return outcomeOK, nil
	}
	if err != nil {
		metrics.MirrorOperations.WithLabelValues("create", outcomeError).Inc()
		return outcomeError, errors.Wrap(err, "failed to send starboard message")
	}

	mirrorID, err := utils.ParseID(sent.ID)
	if err != nil {
		return outcomeError, err
	}
	if sent.Author == nil {
		return outcomeError, errors.New("sent starboard message has no author")
	}
	selfID, err := utils.ParseID(sent.Author.ID)
	if err != nil {
		return outcomeError, err
	}
	authorID, err := authorOf(source)
	if err != nil {
		return outcomeError, err
	}

	var duplicate bool
	err = e.store.Acquire(ctx, txOptions, func(q *database.Query) error {
		if err := q.AddMessage(ctx, p.source.ID, p.source.ChannelID, authorID, p.source.GuildID); err != nil {
			return err
		}
		if err := q.AddMessage(ctx, mirrorID, p.channelID, selfID, &p.guildID); err != nil {
			return err
		}
		inserted, err := q.AddStarboardMessage(ctx, p.source.ID, mirrorID)
		if err != nil {
			return err
		}
		if !inserted {
			duplicate = true
			return q.RemoveMessages(ctx, mirrorID)
		}
		return nil
	})
	if err != nil || duplicate {
		// the mirror is not tracked, so it must not stay behind
		if delErr := transport.DeleteMessage(ctx, sent.ChannelID, sent.ID); delErr != nil && !partials.IsNotFound(delErr) {
			log.WithError(delErr).Error("Failed to delete untracked starboard message")
		}
	}
	if err != nil {
		metrics.MirrorOperations.WithLabelValues("create", outcomeError).Inc()
		return outcomeError, err
	}
	if duplicate {
		metrics.MirrorOperations.WithLabelValues("create", "duplicate").Inc()
		log.Info("Source already mirrored, dropped the duplicate")
		return outcomeOK, nil
	}

	metrics.MirrorOperations.WithLabelValues("create", outcomeOK).Inc()
	log.WithField("mirror_id", mirrorID).Debug("Created starboard message")
	return outcomeOK, nil
}

func (e *Engine) updateMirror(ctx context.Context, p plan) (string, error) {
	_, err := p.mirror.Edit(ctx, e.resolver.Transport(), &p.content, nil)
	if partials.IsNotFound(err) {
		metrics.MirrorOperations.WithLabelValues("update", "missing").Inc()
		return e.forgetMirrors(ctx, p.mirror.ID)
	}
	if err != nil {
		metrics.MirrorOperations.WithLabelValues("update", outcomeError).Inc()
		return outcomeError, errors.Wrap(err, "failed to edit starboard message")
	}
	metrics.MirrorOperations.WithLabelValues("update", outcomeOK).Inc()
	return outcomeOK, nil
}

func (e *Engine) deleteMirror(ctx context.Context, p plan) (string, error) {
	err := p.mirror.Delete(ctx, e.resolver.Transport())
	if err != nil && !partials.IsNotFound(err) {
		metrics.MirrorOperations.WithLabelValues("delete", outcomeError).Inc()
		return outcomeError, errors.Wrap(err, "failed to delete starboard message")
	}
	metrics.MirrorOperations.WithLabelValues("delete", outcomeOK).Inc()
	return e.forgetMirrors(ctx, p.mirror.ID)
}

// forgetMirrors drops mirror message rows, and with them their mappings.
func (e *Engine) forgetMirrors(ctx context.Context, ids ...uint64) (string, error) {
	err := e.store.Acquire(ctx, txOptions, func(q *database.Query) error {
		return q.RemoveMessages(ctx, ids...)
	})
	if err != nil {
		return outcomeError, err
	}
	return outcomeOK, nil
}

func (e *Engine) onMessageEdit(ctx context.Context, cfg *model.Config, ev MessageEdit) (string, error) {
	unlock := e.locks.Lock(ev.MessageID)
	defer unlock()

	var source, mirror *partials.PartialMessage
	err := e.store.Acquire(ctx, database.AcquireOptions{}, func(q *database.Query) error {
		mirrorID, ok, err := q.GetStarboardMessage(ctx, ev.MessageID)
		if err != nil || !ok {
			return err
		}
		if mirror, err = e.resolver.PartialMessage(ctx, q, mirrorID); err != nil {
			return err
		}
		source, err = e.resolver.PartialMessage(ctx, q, ev.MessageID)
		return err
	})
	if err != nil {
		return outcomeError, err
	}
	if source == nil || mirror == nil {
		return outcomeIgnored, nil
	}

	full, err := e.resolver.Full(ctx, source)
	if err != nil {
		return outcomeError, err
	}
	_, err = mirror.Edit(ctx, e.resolver.Transport(), nil, BuildEmbed(full, embedColor(cfg)))
	if partials.IsNotFound(err) {
		metrics.MirrorOperations.WithLabelValues("update", "missing").Inc()
		return e.forgetMirrors(ctx, mirror.ID)
	}
	if err != nil {
		metrics.MirrorOperations.WithLabelValues("update", outcomeError).Inc()
		return outcomeError, errors.Wrap(err, "failed to edit starboard embed")
	}
	metrics.MirrorOperations.WithLabelValues("update", outcomeOK).Inc()
	return outcomeOK, nil
}

// deleteSources removes the mirrors of deleted source messages, then the
// messages themselves. Mirror deletions run concurrently and one failure
// does not stop the others.
func (e *Engine) deleteSources(ctx context.Context, ids []uint64) (string, error) {
	if len(ids) == 0 {
		return outcomeIgnored, nil
	}
	for _, unlock := range e.lockAll(ids) {
		defer unlock()
	}

	var mirrors []model.StarboardMessage
	err := e.store.Acquire(ctx, database.AcquireOptions{}, func(q *database.Query) error {
		var err error
		mirrors, err = q.GetStarboardMessages(ctx, ids)
		return err
	})
	if err != nil {
		return outcomeError, err
	}

	transport := e.resolver.Transport()
	deleted := make([]bool, len(mirrors))
	p := pool.New().WithErrors()
	for i, m := range mirrors {
		p.Go(func() error {
			mirror := &partials.PartialMessage{ID: m.StarMessageID, ChannelID: m.ChannelID}
			err := mirror.Delete(ctx, transport)
			if err != nil && !partials.IsNotFound(err) {
				metrics.MirrorOperations.WithLabelValues("delete", outcomeError).Inc()
				return errors.Wrapf(err, "failed to delete starboard message %d", m.StarMessageID)
			}
			metrics.MirrorOperations.WithLabelValues("delete", outcomeOK).Inc()
			deleted[i] = true
			return nil
		})
	}
	deleteErr := p.Wait()

	remove := append([]uint64(nil), ids...)
	for i, m := range mirrors {
		if deleted[i] {
			remove = append(remove, m.StarMessageID)
		}
	}
	err = e.store.Acquire(ctx, txOptions, func(q *database.Query) error {
		return q.RemoveMessages(ctx, remove...)
	})
	if err != nil {
		return outcomeError, err
	}
	if deleteErr != nil {
		return outcomeError, deleteErr
	}
	if len(mirrors) == 0 {
		return outcomeIgnored, nil
	}
	return outcomeOK, nil
}

// lockAll takes the message locks of ids in ascending order so that
// overlapping bulk deletes cannot deadlock.
func (e *Engine) lockAll(ids []uint64) []func() {
	sorted := append([]uint64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	unlocks := make([]func(), 0, len(sorted))
	var last uint64
	for i, id := range sorted {
		if i > 0 && id == last {
			continue
		}
		last = id
		unlocks = append(unlocks, e.locks.Lock(id))
	}
	return unlocks
}

func authorOf(m *discordgo.Message) (uint64, error) {
	if m.Author == nil {
		return 0, errors.Errorf("message %s has no author", m.ID)
	}
	return utils.ParseID(m.Author.ID)
}

func embedColor(cfg *model.Config) int {
	return utils.ParseHexColor(cfg.Starboard.Color, DefaultColor)
}
