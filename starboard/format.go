package starboard

import (
	"fmt"
	"strings"
	"time"

	"starboard-bot/model"
	"starboard-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// DefaultColor is the mirror embed accent when none is configured.
const DefaultColor = 0xFAF317

// FormatContent renders the star summary line of a mirror, for example
// "⭐ **4**  👀 **1**  https://discord.com/channels/1/2/3".
func FormatContent(counts []model.StarCount, jumpURL string) string {
	parts := make([]string, 0, len(counts)+1)
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s **%d**", c.Emoji, c.Count))
	}
	parts = append(parts, jumpURL)
	return strings.Join(parts, "  ")
}

// BuildEmbed renders the body of a mirror from its source message.
func BuildEmbed(m *discordgo.Message, color int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Description: m.Content,
		Color:       color,
		Timestamp:   createdAt(m).Format(time.RFC3339),
	}
	if m.Author != nil {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    authorName(m),
			IconURL: m.Author.AvatarURL(""),
		}
	}
	if url := imageURL(m); url != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: url}
	}
	return embed
}

func createdAt(m *discordgo.Message) time.Time {
	if !m.Timestamp.IsZero() {
		return m.Timestamp
	}
	if id, err := utils.ParseID(m.ID); err == nil {
		return utils.SnowflakeTime(id)
	}
	return time.Time{}
}

func authorName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	return m.Author.DisplayName()
}

// imageURL picks the first image attachment, then the first embed image.
func imageURL(m *discordgo.Message) string {
	for _, a := range m.Attachments {
		if a != nil && strings.HasPrefix(a.ContentType, "image/") {
			return a.URL
		}
	}
	for _, e := range m.Embeds {
		if e != nil && e.Image != nil && e.Image.URL != "" {
			return e.Image.URL
		}
	}
	return ""
}
