package bot

import (
	"context"
	"sync/atomic"

	"starboard-bot/cache"
	"starboard-bot/config"
	"starboard-bot/model"
	"starboard-bot/partials"
	"starboard-bot/starboard"
	"starboard-bot/utils"
	"starboard-bot/utils/database"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Options carries the command line settings a reload must preserve.
type Options struct {
	ConfigPath string
	Verbosity  int
}

type Bot struct {
	Session            *discordgo.Session
	RegisteredCommands []*discordgo.ApplicationCommand
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)
	Store              *database.Client
	Engine             *starboard.Engine
	Cache              cache.Set

	config    atomic.Value // *model.Config
	opts      Options
	db        *sqlx.DB
	scheduler *Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
	log       *logrus.Entry
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

func (b *Bot) GetDB() *sqlx.DB {
	return b.db
}

func (b *Bot) GetSession() *discordgo.Session {
	return b.Session
}

func (b *Bot) GetStore() *database.Client {
	return b.Store
}

func (b *Bot) GetCache() cache.Set {
	return b.Cache
}

// Context is cancelled when the bot shuts down.
func (b *Bot) Context() context.Context {
	return b.ctx
}

// New opens the store and the cache and prepares the gateway session. The
// connection is opened by Run.
func New(cfg *model.Config, opts Options) (*Bot, error) {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		log:    logrus.WithField("module", "bot"),
	}
	b.config.Store(cfg)

	db, err := database.Open(cfg.DB)
	if err != nil {
		cancel()
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		_ = db.Close()
		return nil, err
	}
	b.db = db

	set, err := newCacheSet(ctx, cfg.Cache)
	if err != nil {
		cancel()
		_ = db.Close()
		return nil, err
	}
	b.Cache = set

	dg, err := discordgo.New("Bot " + cfg.Bot.Token)
	if err != nil {
		b.closeStores()
		return nil, errors.Wrap(err, "failed to create discord session")
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentMessageContent
	dg.StateEnabled = true
	dg.State.MaxMessageCount = cfg.Bot.StateMaxMessages
	b.Session = dg

	b.Store = database.NewClient(db, set)
	b.Engine = starboard.NewEngine(b.Store, partials.NewResolver(partials.NewSessionTransport(dg)))
	b.scheduler = NewScheduler(b)
	return b, nil
}

func newCacheSet(ctx context.Context, cfg model.CacheConfig) (cache.Set, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, errors.Wrapf(err, "failed to reach redis at %s", cfg.RedisAddr)
		}
		return cache.NewRedisSet(client, cfg.RedisPrefix, cfg.ExpiresAfter), nil
	default:
		return cache.NewMemorySet(cfg.ExpiresAfter), nil
	}
}

// ReloadConfig swaps in a fresh configuration snapshot. Handlers already
// running keep the snapshot they started with. Connection settings only take
// effect after a restart.
func (b *Bot) ReloadConfig() error {
	b.log.Info("Reloading configuration...")
	newCfg, err := config.Load(b.opts.ConfigPath)
	if err != nil {
		b.log.WithError(err).Error("Error reloading config")
		return err
	}

	old := b.GetConfig()
	if newCfg.Bot.Token != old.Bot.Token || newCfg.DB != old.DB || newCfg.Cache != old.Cache {
		b.log.Warn("Token, database and cache settings change only after a restart")
		newCfg.Bot.Token = old.Bot.Token
		newCfg.DB = old.DB
		newCfg.Cache = old.Cache
	}
	if err := utils.SetupLogging(newCfg.Log, b.opts.Verbosity); err != nil {
		b.log.WithError(err).Error("Invalid logging settings, keeping the current ones")
		newCfg.Log = old.Log
	}

	b.config.Store(newCfg)
	b.log.WithField("version", newCfg.Version).Info("Configuration reloaded successfully")
	return nil
}

func (b *Bot) closeStores() {
	if b.Cache != nil {
		if err := b.Cache.Close(); err != nil {
			b.log.WithError(err).Warn("Failed to close cache")
		}
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			b.log.WithError(err).Warn("Failed to close database")
		}
	}
	b.cancel()
}

func (b *Bot) Close() {
	b.log.Info("Gracefully shutting down.")
	b.cancel()
	b.scheduler.Stop()
	if err := b.Session.Close(); err != nil {
		b.log.WithError(err).Warn("Failed to close gateway session")
	}
	b.closeStores()
}
