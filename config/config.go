package config

import (
	"bytes"
	_ "embed"
	"os"
	"strings"
	"sync/atomic"

	"starboard-bot/model"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. STARBOARD_DB_DSN.
const EnvPrefix = "STARBOARD"

//go:embed config_default.toml
var defaultConfig []byte

var version atomic.Uint64

// Load reads the embedded defaults, merges the file at path over them and
// applies environment overrides. A missing file is not an error. Every call
// returns a fresh snapshot with a higher Version.
func Load(path string) (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on environment variables")
	}

	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewReader(defaultConfig)); err != nil {
		return nil, errors.Wrap(err, "failed to read default config")
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.MergeInConfig(); err != nil {
				return nil, errors.Wrapf(err, "failed to read config file %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to stat config file %s", path)
		} else {
			logrus.WithField("path", path).Info("Config file not found, using defaults")
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("bot.token", "BOT_TOKEN", EnvPrefix+"_BOT_TOKEN"); err != nil {
		return nil, errors.Wrap(err, "failed to bind token env")
	}

	cfg := &model.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	cfg.Version = version.Add(1)
	return cfg, nil
}

// Validate rejects configurations the bot cannot start with.
func Validate(cfg *model.Config) error {
	if cfg.Bot.Token == "" {
		return errors.New("bot.token is not set (use BOT_TOKEN)")
	}
	switch cfg.Cache.Backend {
	case "memory":
	case "redis":
		if cfg.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr is required for the redis backend")
		}
	default:
		return errors.Errorf("unknown cache.backend %q", cfg.Cache.Backend)
	}
	if cfg.Cache.ExpiresAfter <= 0 {
		return errors.New("cache.expires_after must be positive")
	}
	if len(cfg.Starboard.AllowedEmojis) == 0 {
		return errors.New("starboard.allowed_emojis must not be empty")
	}
	return nil
}
