package main

import (
	"context"
	"os"

	"starboard-bot/bot"
	"starboard-bot/config"
	"starboard-bot/handlers"
	"starboard-bot/utils"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Error("Starboard bot exited")
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		verbosity  int
	)
	flags := pflag.NewFlagSet("starboard-bot", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config-file", "config.toml", "path to the TOML configuration file")
	flags.CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := utils.SetupLogging(cfg.Log, verbosity); err != nil {
		return errors.Wrap(err, "invalid logging settings")
	}

	b, err := bot.New(cfg, bot.Options{ConfigPath: configPath, Verbosity: verbosity})
	if err != nil {
		return err
	}
	defer b.Close()

	handlers.Register(b)
	return b.Run(context.Background())
}
