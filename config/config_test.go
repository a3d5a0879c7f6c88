package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"starboard-bot/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.Bot.Token)
	assert.Equal(t, 1000, cfg.Bot.StateMaxMessages)
	assert.Equal(t, "sqlite3", cfg.DB.Driver)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.ExpiresAfter)
	assert.Equal(t, []string{"⭐"}, cfg.Starboard.AllowedEmojis)
	assert.Equal(t, "#FAF317", cfg.Starboard.Color)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[bot]
token = "from-file"

[cache]
backend = "redis"
expires_after = "5m"

[starboard]
allowed_emojis = ["⭐", "<:gold:55>"]
`), 0o644))
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("STARBOARD_DB_DSN", "file:other.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Bot.Token)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ExpiresAfter)
	assert.Equal(t, "file:other.db", cfg.DB.DSN)
	assert.True(t, cfg.Starboard.IsStarEmoji("<:gold:55>"))

	t.Setenv("BOT_TOKEN", "from-env")
	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", again.Bot.Token)
	assert.Greater(t, again.Version, cfg.Version)
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("STARBOARD_BOT_TOKEN", "")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *model.Config {
		return &model.Config{
			Bot:       model.BotConfig{Token: "t"},
			Cache:     model.CacheConfig{Backend: "memory", ExpiresAfter: time.Minute},
			Starboard: model.StarboardConfig{AllowedEmojis: []string{"⭐"}},
		}
	}
	require.NoError(t, Validate(valid()))

	cfg := valid()
	cfg.Cache.Backend = "memcached"
	assert.Error(t, Validate(cfg))

	cfg = valid()
	cfg.Cache.Backend = "redis"
	assert.Error(t, Validate(cfg), "redis without address")

	cfg = valid()
	cfg.Starboard.AllowedEmojis = nil
	assert.Error(t, Validate(cfg))
}
