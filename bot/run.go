package bot

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"starboard-bot/commands"
	"starboard-bot/metrics"

	"github.com/pkg/errors"
)

// Run connects to the gateway and blocks until ctx is done or the process
// receives SIGINT or SIGTERM. SIGHUP reloads the configuration.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Session.Open(); err != nil {
		return errors.Wrap(err, "error opening connection")
	}

	if err := b.registerCommands(); err != nil {
		b.log.WithError(err).Error("Failed to register commands")
	}

	b.scheduler.Start()

	if listen := b.GetConfig().Metrics.Listen; listen != "" {
		go func() {
			if err := metrics.Serve(b.ctx, listen); err != nil {
				b.log.WithError(err).Error("Metrics listener stopped")
			}
		}()
	}

	b.log.Info("Bot is now running. Press CTRL-C to exit.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sc)

	for {
		select {
		case sig := <-sc:
			if sig == syscall.SIGHUP {
				_ = b.ReloadConfig()
				continue
			}
			b.log.WithField("signal", sig.String()).Info("Received shutdown signal")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (b *Bot) registerCommands() error {
	cmds := commands.All()
	b.log.WithField("count", len(cmds)).Info("Registering global commands...")
	registered, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, "", cmds)
	if err != nil {
		return errors.Wrap(err, "cannot overwrite global commands")
	}
	b.RegisteredCommands = registered
	return nil
}
