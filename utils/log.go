package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"time"

	"starboard-bot/model"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type DiscordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Fields      []DiscordEmbedField `json:"fields"`
}

type DiscordWebhookPayload struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

// embed field values are capped by Discord
const maxFieldLength = 1024

func getColor(level logrus.Level) int {
	switch level {
	case logrus.InfoLevel:
		return 3066993 // Green
	case logrus.WarnLevel:
		return 15105570 // Orange
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return 15158332 // Red
	default:
		return 3447003 // Blue
	}
}

// SetupLogging configures the standard logrus logger. Each -v on the
// command line lowers the level by one step below the configured one.
func SetupLogging(cfg model.LogConfig, verbosity int) error {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return errors.Wrap(err, "invalid log level")
		}
		level = parsed
	}
	for i := 0; i < verbosity && level < logrus.TraceLevel; i++ {
		level++
	}
	logrus.SetLevel(level)

	switch cfg.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return errors.Errorf("unknown log format %q", cfg.Format)
	}

	hooks := make(logrus.LevelHooks)
	if cfg.WebhookURL != "" {
		hooks.Add(NewDiscordHook(cfg.WebhookURL, logrus.WarnLevel))
	}
	logrus.StandardLogger().ReplaceHooks(hooks)
	return nil
}

// DiscordHook posts log entries as embeds to a Discord webhook.
type DiscordHook struct {
	webhookURL string
	minLevel   logrus.Level
	client     *http.Client
}

// NewDiscordHook sends entries at minLevel and above to webhookURL.
func NewDiscordHook(webhookURL string, minLevel logrus.Level) *DiscordHook {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &DiscordHook{
		webhookURL: webhookURL,
		minLevel:   minLevel,
		client:     &http.Client{Transport: transport, Timeout: 10 * time.Second},
	}
}

func (h *DiscordHook) Levels() []logrus.Level {
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= h.minLevel {
			levels = append(levels, l)
		}
	}
	return levels
}

// Fire must not log through logrus itself.
func (h *DiscordHook) Fire(entry *logrus.Entry) error {
	payload := DiscordWebhookPayload{Embeds: []DiscordEmbed{buildEmbed(entry)}}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, h.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to send log to discord, status: %s, body: %s", resp.Status, string(respBody))
	}
	return nil
}

func buildEmbed(entry *logrus.Entry) DiscordEmbed {
	embed := DiscordEmbed{
		Title:       capitalize(entry.Level.String()) + " Log",
		Description: truncate(entry.Message, 4096),
		Color:       getColor(entry.Level),
		Timestamp:   entry.Time.UTC().Format(time.RFC3339),
	}

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		embed.Fields = append(embed.Fields, DiscordEmbedField{
			Name:   k,
			Value:  truncate(fmt.Sprint(entry.Data[k]), maxFieldLength),
			Inline: k != logrus.ErrorKey,
		})
	}
	return embed
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
