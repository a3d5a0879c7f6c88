package bot

import (
	"context"
	"sync"
	"time"

	"starboard-bot/cache"
	"starboard-bot/metrics"
	"starboard-bot/model"
	"starboard-bot/utils/database"

	"github.com/sirupsen/logrus"
)

const statsInterval = 5 * time.Minute

// BotProvider defines the methods the scheduler needs from the Bot.
type BotProvider interface {
	model.BotConfigProvider
	GetStore() *database.Client
	GetCache() cache.Set
}

// Scheduler runs the periodic maintenance tasks.
type Scheduler struct {
	bot  BotProvider
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
	log  *logrus.Entry
}

func NewScheduler(bot BotProvider) *Scheduler {
	return &Scheduler{
		bot:  bot,
		done: make(chan struct{}),
		log:  logrus.WithField("module", "scheduler"),
	}
}

// Start begins all scheduled tasks.
func (s *Scheduler) Start() {
	if set, ok := s.bot.GetCache().(*cache.MemorySet); ok {
		s.wg.Add(1)
		go s.startCacheSweeper(set, s.bot.GetConfig().Cache.ExpiresAfter)
	}
	s.wg.Add(1)
	go s.startStatsUpdater()
}

// Stop terminates all scheduled tasks and waits for them. It is safe to call
// more than once.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		s.log.Debug("Stopping scheduler...")
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Scheduler) startCacheSweeper(set *cache.MemorySet, interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := set.Sweep()
			s.log.WithFields(logrus.Fields{"removed": removed, "remaining": set.Len()}).Debug("Swept cache")
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) startStatsUpdater() {
	defer s.wg.Done()
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	s.updateStats()
	for {
		select {
		case <-ticker.C:
			s.updateStats()
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) updateStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	counts, err := CountRows(ctx, s.bot.GetStore())
	if err != nil {
		s.log.WithError(err).Warn("Failed to count store rows")
		return
	}
	metrics.StoredRows.WithLabelValues("guild").Set(float64(counts.Guilds))
	metrics.StoredRows.WithLabelValues("channel").Set(float64(counts.Channels))
	metrics.StoredRows.WithLabelValues("message").Set(float64(counts.Messages))
	metrics.StoredRows.WithLabelValues("message_star").Set(float64(counts.Stars))
	metrics.StoredRows.WithLabelValues("starboard_message").Set(float64(counts.StarboardMessages))
}

// CountRows reads the row counts of the store in one connection.
func CountRows(ctx context.Context, store *database.Client) (model.RowCounts, error) {
	var counts model.RowCounts
	err := store.Acquire(ctx, database.AcquireOptions{}, func(q *database.Query) error {
		var err error
		counts, err = q.CountRows(ctx)
		return err
	})
	return counts, err
}
